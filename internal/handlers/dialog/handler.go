package dialog

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/bot"
	"github.com/iamwavecut/whosent/internal/handlers/base"
)

// Handler adapts telegram updates into router events.
type Handler struct {
	*base.BaseHandler
	router *Router
}

func NewHandler(service bot.Service, router *Router) *Handler {
	return &Handler{
		BaseHandler: base.NewBaseHandler(service, "dialog"),
		router:      router,
	}
}

func (h *Handler) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		h.GetLogger().WithError(err).Trace("skipping update")
		return true, nil
	}
	from := identityOf(user)
	entry := h.GetLogger().WithFields(log.Fields{
		"user_id": user.ID,
		"user":    bot.GetUN(user),
	})

	if cb := u.CallbackQuery; cb != nil {
		entry.WithField("data", cb.Data).Trace("button")
		return false, h.router.HandleButton(ctx, ButtonEvent{
			From:       from,
			CallbackID: cb.ID,
			Data:       cb.Data,
		})
	}

	msg := u.Message
	if msg == nil {
		return true, nil
	}

	if msg.IsCommand() {
		command := msg.Command()
		args := strings.TrimSpace(msg.CommandArguments())
		entry.WithField("command", command).Trace("command")
		if command == CommandStart {
			return false, h.router.HandleStart(ctx, StartEvent{From: from, Payload: args})
		}
		return false, h.router.HandleCommand(ctx, CommandEvent{From: from, Command: command, Args: args})
	}

	text := msg.Text
	if bot.GetMessageType(msg) != bot.MessageTypeText {
		text = ""
	}
	return false, h.router.HandleText(ctx, TextEvent{From: from, Text: text})
}

func identityOf(user *api.User) Identity {
	identity := Identity{
		ID:        user.ID,
		FirstName: bot.GetFullName(user),
	}
	if user.UserName != "" {
		username := user.UserName
		identity.Username = &username
	}
	return identity
}
