package entity

import "fmt"

type Stats struct {
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Available int    `json:"available"`
	UsageRate string `json:"usageRate"`
}

func NewStats(total, used int) *Stats {
	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(used)/float64(total)*100)
	}
	return &Stats{
		Total:     total,
		Used:      used,
		Available: total - used,
		UsageRate: rate,
	}
}
