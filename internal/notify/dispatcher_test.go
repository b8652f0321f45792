package notify

import (
	"context"
	"errors"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

type stubSender struct {
	sent     []api.Chattable
	requests []api.Chattable
	sendErr  error
}

func (s *stubSender) Send(c api.Chattable) (api.Message, error) {
	s.sent = append(s.sent, c)
	return api.Message{}, s.sendErr
}

func (s *stubSender) Request(c api.Chattable) (*api.APIResponse, error) {
	s.requests = append(s.requests, c)
	return &api.APIResponse{Ok: true}, nil
}

func TestNotifyRendersKeyboard(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	d := NewDispatcher(sender)
	d.Notify(context.Background(), 42, "hello",
		Row{Button("Reply", "reply:1"), Button("Report", "report:1")},
		Row{Link("Share", "https://t.me/share/url?url=x")},
		Row{},
	)

	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg, ok := sender.sent[0].(api.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", sender.sent[0])
	}
	if msg.ChatID != 42 || msg.Text != "hello" {
		t.Fatalf("unexpected message: %#v", msg)
	}
	markup, ok := msg.ReplyMarkup.(api.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("unexpected markup %T", msg.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard layout: %#v", markup.InlineKeyboard)
	}
	if data := markup.InlineKeyboard[0][1].CallbackData; data == nil || *data != "report:1" {
		t.Fatalf("unexpected callback data: %v", data)
	}
	if url := markup.InlineKeyboard[1][0].URL; url == nil || *url == "" {
		t.Fatalf("expected url button")
	}
}

func TestNotifySwallowsDeliveryFailure(t *testing.T) {
	t.Parallel()

	sender := &stubSender{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	d := NewDispatcher(sender)

	d.Notify(context.Background(), 7, "text")
	if len(sender.sent) != 1 {
		t.Fatalf("expected a delivery attempt")
	}
}

func TestNotifySkipsCancelledContext(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	d := NewDispatcher(sender)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Notify(ctx, 7, "text")
	if len(sender.sent) != 0 {
		t.Fatalf("expected no delivery on cancelled context")
	}
}

func TestAlertAnswersCallback(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	d := NewDispatcher(sender)
	d.Alert(context.Background(), "", "ignored")
	d.Alert(context.Background(), "cb-1", "Not allowed")

	if len(sender.requests) != 1 {
		t.Fatalf("expected one callback answer, got %d", len(sender.requests))
	}
	cb, ok := sender.requests[0].(api.CallbackConfig)
	if !ok || cb.CallbackQueryID != "cb-1" || !cb.ShowAlert {
		t.Fatalf("unexpected callback: %#v", sender.requests[0])
	}
}

func TestKeyboardNilWhenEmpty(t *testing.T) {
	t.Parallel()

	if Keyboard() != nil || Keyboard(Row{}) != nil {
		t.Fatalf("expected nil keyboard")
	}
}
