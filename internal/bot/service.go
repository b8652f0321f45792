package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/db"
)

type service struct {
	bot    *api.BotAPI
	db     db.Client
	logger *log.Entry
}

func NewService(bot *api.BotAPI, db db.Client, logger *log.Entry) *service {
	return &service{
		bot:    bot,
		db:     db,
		logger: logger,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) Start(ctx context.Context) error {
	if s.bot != nil {
		s.logger.WithField("username", s.bot.Self.UserName).Info("bot service started")
	}
	return nil
}

// Stop closes the store; polling stops with the context of GetUpdatesChans.
func (s *service) Stop(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
