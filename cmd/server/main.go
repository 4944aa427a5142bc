package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/toni86moon/telegram-bot/bot"
	"github.com/toni86moon/telegram-bot/impl/auth"
	"github.com/toni86moon/telegram-bot/impl/core"
	"github.com/toni86moon/telegram-bot/internal/config"
	"github.com/toni86moon/telegram-bot/internal/database"
	"github.com/toni86moon/telegram-bot/internal/instagram"
	"github.com/toni86moon/telegram-bot/internal/stripecoupon"
	"github.com/toni86moon/telegram-bot/internal/webapi"
	"github.com/toni86moon/telegram-bot/internal/woocommerce"
	"github.com/toni86moon/telegram-bot/lib/logger"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

const (
	envLocal    = "local"
	envDev      = "dev"
	envProd     = "prod"
	logFileName = "missions-bot.log"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	baseLogger := setupLogger(conf.Env, *logPath)
	baseLogger.Info("starting missions bot", slog.String("config", *configPath), slog.String("env", conf.Env))

	store, err := database.NewSQLClient(conf)
	if err != nil {
		baseLogger.Error("mysql connection failed", sl.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	verifier := instagram.NewClient(instagram.Config(conf.Instagram), baseLogger)

	var issuer core.RewardIssuer
	switch conf.Reward.Provider {
	case "stripe":
		issuer = stripecoupon.New(conf.Stripe.APIKey, baseLogger)
	case "woocommerce":
		issuer = woocommerce.NewClient(woocommerce.Config(conf.WooCommerce), baseLogger)
	default:
		baseLogger.Error("unknown reward provider", slog.String("provider", conf.Reward.Provider))
		os.Exit(1)
	}

	handler := core.New(store, verifier, issuer, core.Config{
		RewardPoints:    conf.Reward.Points,
		DiscountPercent: conf.Reward.DiscountPercent,
		CodeExpiryDays:  conf.Reward.CodeExpiryDays,
		VerifyTimeout:   time.Duration(conf.Reward.VerifyTimeoutSec) * time.Second,
		IssueTimeout:    time.Duration(conf.Reward.IssueTimeoutSec) * time.Second,
	}, baseLogger)

	mongo := database.NewMongoClient(conf)
	if mongo != nil {
		handler.SetActivityLog(mongo)
	}

	tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, handler, baseLogger, bot.BotConfig{
		AdminIds:  conf.Telegram.AdminIds,
		ChannelId: conf.Telegram.ChannelId,
	})
	if err != nil {
		baseLogger.Error("telegram bot init failed", sl.Err(err))
		os.Exit(1)
	}

	// errors from the bot onward are mirrored to the admin chats
	tgLogger := slog.New(logger.NewTelegramHandler(baseLogger.Handler(), tgBot, slog.LevelError))

	go func() {
		if botErr := tgBot.Start(); botErr != nil {
			tgLogger.Error("telegram bot stopped", sl.Err(botErr))
			os.Exit(1)
		}
	}()

	go func() {
		tokenAuth := auth.New(conf.Listen.Token)
		if apiErr := webapi.New(conf, tgLogger, tokenAuth, handler); apiErr != nil {
			tgLogger.Error("api server stopped", sl.Err(apiErr))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	baseLogger.Info("shutting down")
	tgBot.Stop()
}

func setupLogger(env, path string) *slog.Logger {
	var logger *slog.Logger
	var logFile *os.File
	var err error

	if env != envLocal {
		logPath := logFilePath(path)
		logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
	}

	switch env {
	case envLocal:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		logger = slog.New(
			slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log.Fatal("invalid environment: ", env)
	}

	return logger
}

func logFilePath(path string) string {
	return filepath.Join(path, logFileName)
}
