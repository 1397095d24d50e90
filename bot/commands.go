package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/dustin/go-humanize"

	"passdist/entity"
	"passdist/lib/logger"
)

const statsTimeout = 10 * time.Second

func (t *TgBot) statsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.allowed(chatId) {
		return nil
	}
	if t.stats == nil {
		t.plainResponse(chatId, "Stats are not available")
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()
	stats, err := t.stats.GetStats(c)
	if err != nil {
		t.reportError(chatId, "/stats", err)
		return nil
	}

	t.plainResponse(chatId, formatStats(stats))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.allowed(chatId) {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/stats` \\- Show code usage\n")
	sb.WriteString("`/help` \\- Show this help\n")

	t.plainResponse(chatId, sb.String())
	return nil
}

func formatStats(stats *entity.Stats) string {
	var sb strings.Builder
	sb.WriteString("*Code usage*\n\n")
	sb.WriteString(fmt.Sprintf("Total: `%s`\n", humanize.Comma(int64(stats.Total))))
	sb.WriteString(fmt.Sprintf("Used: `%s`\n", humanize.Comma(int64(stats.Used))))
	sb.WriteString(fmt.Sprintf("Available: `%s`\n", humanize.Comma(int64(stats.Available))))
	sb.WriteString(fmt.Sprintf("Usage rate: %s\n", logger.Sanitize(stats.UsageRate)))
	return sb.String()
}
