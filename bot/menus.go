package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Command lists for Telegram's menu button (the "/" icon in the chat input).
// Everyone gets the user menu as default scope; admins get the extended menu
// pushed per-chat when they show up via /start.

var commandsUser = []tgbotapi.BotCommand{
	{Command: "start", Description: "Register"},
	{Command: "insta", Description: "Link your Instagram account"},
	{Command: "mission", Description: "Get available missions"},
	{Command: "verify", Description: "Verify mission completion"},
	{Command: "points", Description: "Show your points"},
	{Command: "referral", Description: "Get your referral link"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = append(commandsUser[:len(commandsUser):len(commandsUser)],
	tgbotapi.BotCommand{Command: "newmission", Description: "Create a mission"},
	tgbotapi.BotCommand{Command: "missions", Description: "List all missions"},
	tgbotapi.BotCommand{Command: "enable", Description: "Activate a mission"},
	tgbotapi.BotCommand{Command: "disable", Description: "Deactivate a mission"},
	tgbotapi.BotCommand{Command: "notify", Description: "Announce a mission"},
)

// setDefaultCommands sets the default bot menu for all users.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsUser, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

// setAdminCommands sets the extended menu for a single admin chat.
func (t *TgBot) setAdminCommands(chatId int64) {
	_, err := t.api.SetMyCommands(commandsAdmin, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
	})
	if err != nil {
		t.log.Warn("setting admin commands", "chat_id", chatId, "error", err)
	}
}

// syncAdminMenus pushes the admin menu to every configured admin on startup.
func (t *TgBot) syncAdminMenus() {
	for _, chatId := range t.config.AdminIds {
		t.setAdminCommands(chatId)
	}
}
