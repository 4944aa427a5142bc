// Package bot implements the Telegram front end for the missions service.
//
// Architecture overview:
//   - tgbot.go    — TgBot struct, lifecycle (Start/Stop), Core interface
//   - commands.go — User commands: /start, /insta, /mission, /verify, /points, /referral, /help
//   - admin.go    — Admin commands: /newmission, /missions, /enable, /disable, /notify
//   - menus.go    — Per-role command menus via Telegram's BotCommandScope API
//   - helpers.go  — Shared utilities: Sanitize, plainResponse, reportError
//
// The bot is thin I/O glue: it parses commands, gates /mission behind channel
// membership and hands everything else to the lifecycle controller through
// the Core interface.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

// BotConfig holds Telegram-specific configuration loaded from the YAML config file.
type BotConfig struct {
	AdminIds  []int64
	ChannelId int64
}

// Core defines the lifecycle operations the bot depends on.
// Implemented by impl/core.Core.
type Core interface {
	RegisterUser(telegramId int64, username string) error
	LinkProfile(telegramId int64, handle string) (string, error)
	RequestMissions(ctx context.Context, telegramId int64, filter entity.ActionType) ([]*entity.Mission, error)
	VerifyMissions(ctx context.Context, telegramId int64) ([]*entity.VerifyOutcome, error)
	Points(telegramId int64) (int64, error)
	ReferralToken(telegramId int64) (string, error)
	CreateMission(m *entity.Mission) (*entity.Mission, error)
	GetMission(id int64) (*entity.Mission, error)
	SetMissionActive(id int64, active bool) error
	ListMissions() ([]*entity.Mission, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    Core
	updater *ext.Updater
	config  BotConfig
}

func NewTgBot(apiKey string, core Core, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	tgBot := &TgBot{
		log:    log.With(sl.Module("tgbot")),
		core:   core,
		config: cfg,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// User commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("insta", t.insta))
	dispatcher.AddHandler(handlers.NewCommand("mission", t.mission))
	dispatcher.AddHandler(handlers.NewCommand("verify", t.verify))
	dispatcher.AddHandler(handlers.NewCommand("points", t.points))
	dispatcher.AddHandler(handlers.NewCommand("referral", t.referral))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	// Admin commands
	dispatcher.AddHandler(handlers.NewCommand("newmission", t.newMission))
	dispatcher.AddHandler(handlers.NewCommand("missions", t.missionsCmd))
	dispatcher.AddHandler(handlers.NewCommand("enable", t.enable))
	dispatcher.AddHandler(handlers.NewCommand("disable", t.disable))
	dispatcher.AddHandler(handlers.NewCommand("notify", t.notify))

	// Set default bot command menu and admin menus
	t.setDefaultCommands()
	t.syncAdminMenus()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
