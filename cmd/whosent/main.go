package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/whosent/internal/bot"
	"github.com/iamwavecut/whosent/internal/config"
	"github.com/iamwavecut/whosent/internal/db/sqlite"
	"github.com/iamwavecut/whosent/internal/handlers/dialog"
	"github.com/iamwavecut/whosent/internal/handlers/inbox"
	"github.com/iamwavecut/whosent/internal/handlers/moderation"
	"github.com/iamwavecut/whosent/internal/i18n"
	"github.com/iamwavecut/whosent/internal/infra"
	"github.com/iamwavecut/whosent/internal/lifecycle"
	"github.com/iamwavecut/whosent/internal/notify"
	"github.com/iamwavecut/whosent/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	log.SetFormatter(&config.WsFormatter{})
	log.SetOutput(os.Stdout)
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatalln("stopped with error")
	}
	log.Infoln("bye")
}

func run(ctx context.Context, cfg config.Config) error {
	dotPath, err := infra.EnsureDir(cfg.DotPath)
	if err != nil {
		return err
	}
	store, err := sqlite.NewSQLiteClient(ctx, dotPath, cfg.DBName)
	if err != nil {
		return err
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		_ = store.Close()
		return err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	if cfg.Bot.Username == "" {
		cfg.Bot.Username = botAPI.Self.UserName
	}

	tr := i18n.Default()
	notifier := notify.NewDispatcher(botAPI)
	engine := moderation.NewEngine(store, notifier, tr, moderation.Config{
		AdminID:         cfg.Moderation.AdminID,
		ReportThreshold: cfg.Moderation.ReportThreshold,
	})
	recorder := inbox.NewRecorder(store, engine, notifier, tr, cfg.Bot.RevealPrice)
	router := dialog.NewRouter(store, dialog.NewRegistry(), recorder, engine, notifier, tr, dialog.Config{
		BotUsername:     cfg.Bot.Username,
		SupportUsername: cfg.Bot.SupportUsername,
	})

	service := bot.NewService(botAPI, store, log.WithField("bot", cfg.Bot.Username))
	updateProcessor := bot.NewUpdateProcessor(service, cfg.UpdateTimeout, dialog.NewHandler(service, router))

	runtime := lifecycle.NewRuntime().
		Register("telemetry", observability.NewTelemetry(cfg.MetricsAddr)).
		Register("service", service)
	if err := runtime.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop runtime")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateConfig.AllowedUpdates = []string{"message", "callback_query"}
		updateChan, errorChan := bot.GetUpdatesChans(gctx, botAPI, updateConfig)

		done := make(chan error, 1)
		go infra.GoRecoverable(-1, "process_updates", func() {
			done <- consume(gctx, updateProcessor, updateChan, errorChan)
		})
		return <-done
	})
	g.Go(func() error {
		select {
		case _, ok := <-infra.MonitorExecutable(gctx):
			if ok {
				log.Warnln("executable file was modified")
				return context.Canceled
			}
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// consume feeds updates to the processor until the source fails or ctx is done.
func consume(ctx context.Context, processor *bot.UpdateProcessor, updateChan api.UpdatesChannel, errorChan chan error) error {
	for {
		select {
		case err, ok := <-errorChan:
			if !ok {
				return nil
			}
			return err
		case update, ok := <-updateChan:
			if !ok {
				return nil
			}
			if err := processor.Process(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
