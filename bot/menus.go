package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"passdist/lib/sl"
)

var commands = []tgbotapi.BotCommand{
	{Command: "stats", Description: "Show code usage"},
	{Command: "help", Description: "Show available commands"},
}

// setCommands publishes the menu only to the configured chats.
func (t *TgBot) setCommands() {
	for _, id := range t.chatIds {
		_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
			Scope: tgbotapi.BotCommandScopeChat{ChatId: id},
		})
		if err != nil {
			t.log.With("id", id).Warn("setting chat commands", sl.Err(err))
		}
	}
}
