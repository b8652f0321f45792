// Package notify delivers outbound texts to users on a best effort basis.
package notify

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	errs "github.com/iamwavecut/whosent/internal/errors"
	"github.com/iamwavecut/whosent/internal/observability"
)

// Sender is the subset of *api.BotAPI used for delivery.
type Sender interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
}

// Affordance is a single inline button. Data and URL are mutually exclusive.
type Affordance struct {
	Label string
	Data  string
	URL   string
}

func Button(label, data string) Affordance {
	return Affordance{Label: label, Data: data}
}

func Link(label, url string) Affordance {
	return Affordance{Label: label, URL: url}
}

// Row groups affordances rendered side by side.
type Row []Affordance

// Notifier is implemented by Dispatcher and by recording fakes in tests.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string, rows ...Row)
	Alert(ctx context.Context, callbackID, text string)
}

type Dispatcher struct {
	sender Sender
	logger *log.Entry
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: log.WithField("component", "notify"),
	}
}

// Notify sends text with an optional inline keyboard. Failures are logged and swallowed.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, text string, rows ...Row) {
	if err := d.deliver(ctx, userID, text, rows); err != nil {
		observability.RecordFailedDelivery()
		d.logger.WithFields(log.Fields{
			"user_id": userID,
			"error":   err,
		}).Warn("delivery failed")
	}
}

func (d *Dispatcher) deliver(ctx context.Context, userID int64, text string, rows []Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := api.NewMessage(userID, text)
	msg.LinkPreviewOptions.IsDisabled = true
	if markup := Keyboard(rows...); markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := d.sender.Send(msg); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDeliveryUnreachable, err)
	}
	return nil
}

// Alert answers a button press; an empty text only stops the client spinner.
func (d *Dispatcher) Alert(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	callback := api.NewCallback(callbackID, text)
	callback.ShowAlert = text != ""
	if _, err := d.sender.Request(callback); err != nil {
		d.logger.WithError(err).Debug("cant answer callback")
	}
}

// Keyboard renders rows of affordances, returning nil when there is nothing to render.
func Keyboard(rows ...Row) *api.InlineKeyboardMarkup {
	keyboard := make([][]api.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]api.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			switch {
			case a.URL != "":
				buttons = append(buttons, api.NewInlineKeyboardButtonURL(a.Label, a.URL))
			case a.Data != "":
				buttons = append(buttons, api.NewInlineKeyboardButtonData(a.Label, a.Data))
			}
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, buttons)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	markup := api.NewInlineKeyboardMarkup(keyboard...)
	return &markup
}
