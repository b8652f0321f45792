package dialog

import (
	"context"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/whosent/internal/action"
)

func TestHandlerTurnsStartCommandIntoDeepLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.start(t, 1, "")
	h := NewHandler(nil, f.router)
	user := &api.User{ID: 2, FirstName: "Bob", UserName: "bob"}
	update := &api.Update{
		Message: &api.Message{
			From:     user,
			Text:     "/start 1",
			Entities: []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		},
	}

	proceed, err := h.Handle(context.Background(), update, &api.Chat{ID: 2, Type: "private"}, user)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("handled update must stop the chain")
	}
	pending, ok := f.registry.Peek(2)
	if !ok || pending.Kind != PendingComposeMessageTo || pending.TargetID != 1 {
		t.Fatalf("unexpected pending action: %+v (set=%v)", pending, ok)
	}
}

func TestHandlerSkipsGroupChatsAndBots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h := NewHandler(nil, f.router)
	user := &api.User{ID: 2, FirstName: "Bob"}
	update := &api.Update{Message: &api.Message{From: user, Text: "hello"}}

	proceed, err := h.Handle(context.Background(), update, &api.Chat{ID: -100, Type: "supergroup"}, user)
	if err != nil || !proceed {
		t.Fatalf("group update should be passed on: proceed=%v err=%v", proceed, err)
	}

	botUser := &api.User{ID: 3, IsBot: true}
	proceed, err = h.Handle(context.Background(), update, &api.Chat{ID: 3, Type: "private"}, botUser)
	if err != nil || !proceed {
		t.Fatalf("bot update should be passed on: proceed=%v err=%v", proceed, err)
	}
	if got := f.notifier.To(2); len(got) != 0 {
		t.Fatalf("skipped updates must not notify: %+v", got)
	}
}

func TestHandlerRoutesButtonsAndNonText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h := NewHandler(nil, f.router)
	user := &api.User{ID: 4, FirstName: "Eve"}
	chat := &api.Chat{ID: 4, Type: "private"}

	button := &api.Update{CallbackQuery: &api.CallbackQuery{ID: "cb", From: user, Data: action.Menu(action.MenuOpen)}}
	if _, err := h.Handle(context.Background(), button, chat, user); err != nil {
		t.Fatalf("handle button: %v", err)
	}
	if last, ok := f.notifier.Last(4); !ok || last.Text != "Main menu" {
		t.Fatalf("expected main menu, got %+v", last)
	}

	sticker := &api.Update{Message: &api.Message{From: user, Sticker: &api.Sticker{FileID: "x"}}}
	if _, err := h.Handle(context.Background(), sticker, chat, user); err != nil {
		t.Fatalf("handle sticker: %v", err)
	}
	if last, ok := f.notifier.Last(4); !ok || last.Text != "Only text messages are supported." {
		t.Fatalf("expected text only notice, got %+v", last)
	}
}
