package base

import (
	"errors"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/bot"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	service bot.Service
	logger  *log.Entry
}

func NewBaseHandler(service bot.Service, handlerName string) *BaseHandler {
	return &BaseHandler{
		service: service,
		logger:  log.WithField("handler", handlerName),
	}
}

func (h *BaseHandler) GetService() bot.Service {
	return h.service
}

func (h *BaseHandler) GetLogger() *log.Entry {
	return h.logger
}

// ValidateUpdate accepts updates that carry a sender and come from a private chat or a button press.
func (h *BaseHandler) ValidateUpdate(u *api.Update, chat *api.Chat, user *api.User) error {
	if u == nil {
		return ErrNilUpdate
	}
	if user == nil {
		return ErrNilUser
	}
	if user.IsBot {
		return ErrBotSender
	}
	if u.CallbackQuery == nil && (chat == nil || !chat.IsPrivate()) {
		return ErrNotPrivate
	}
	return nil
}

var (
	ErrNilUpdate  = errors.New("nil update")
	ErrNilUser    = errors.New("nil user")
	ErrBotSender  = errors.New("sender is a bot")
	ErrNotPrivate = errors.New("not a private chat")
)
