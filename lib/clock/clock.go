package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

// Now returns the current UTC time as used in API responses
func Now() string {
	return Format(time.Now())
}

func Format(t time.Time) string {
	return t.UTC().Format(layout)
}

// Date returns the calendar date part, the form stored as metadata.createdDate
func Date(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
