package inbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/whosent/internal/action"
	"github.com/iamwavecut/whosent/internal/db"
	"github.com/iamwavecut/whosent/internal/db/sqlite"
	errs "github.com/iamwavecut/whosent/internal/errors"
	"github.com/iamwavecut/whosent/internal/notify/notifytest"
)

type stubBlocks struct {
	mu     sync.Mutex
	status map[int64]bool
}

func (s *stubBlocks) set(userID int64, permanent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		s.status = make(map[int64]bool)
	}
	s.status[userID] = permanent
}

func (s *stubBlocks) BlockStatus(_ context.Context, userID int64) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	permanent, ok := s.status[userID]
	return ok, permanent, nil
}

type fixture struct {
	store    db.Client
	blocks   *stubBlocks
	notifier *notifytest.Recorder
	recorder *Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:    store,
		blocks:   &stubBlocks{},
		notifier: &notifytest.Recorder{},
	}
	f.recorder = NewRecorder(store, f.blocks, f.notifier, notifytest.KeyTranslator{}, 25)
	return f
}

func (f *fixture) user(t *testing.T, id int64, username string) {
	t.Helper()

	var handle *string
	if username != "" {
		handle = &username
	}
	if _, _, err := f.store.EnsureUser(context.Background(), id, handle, "User"); err != nil {
		t.Fatalf("ensure user %d: %v", id, err)
	}
}

func TestComposeAndDeliverStoresAndNotifies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "alice")
	f.user(t, 2, "bob")

	if err := f.recorder.RecordVisit(ctx, 2, 1); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	msg, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "hello")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if msg.SenderID != 2 || msg.ReceiverID != 1 || msg.Text != "hello" || msg.Revealed {
		t.Fatalf("unexpected message: %#v", msg)
	}
	if db.Handle(msg.SenderUsername) != "@bob" {
		t.Fatalf("sender snapshot missing: %#v", msg)
	}

	receiver, err := f.store.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get receiver: %v", err)
	}
	if receiver.MessagesReceived != 1 {
		t.Fatalf("expected counter 1, got %d", receiver.MessagesReceived)
	}

	n, ok := f.notifier.Last(1)
	if !ok {
		t.Fatalf("receiver was not notified")
	}
	if !strings.Contains(n.Text, "hello") {
		t.Fatalf("notification misses body: %q", n.Text)
	}
	for _, data := range []string{action.Reply(msg.ID), action.Reveal(msg.ID), action.Report(msg.ID)} {
		if !n.HasAction(data) {
			t.Fatalf("notification misses %q affordance", data)
		}
	}
}

func TestComposeAndDeliverRejectsBlockedSender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "")
	f.user(t, 2, "")

	f.blocks.set(2, false)
	if _, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "hi"); !errors.Is(err, errs.ErrBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	f.blocks.set(2, true)
	if _, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "hi"); !errors.Is(err, errs.ErrPermanentlyBanned) {
		t.Fatalf("expected permanent ban error, got %v", err)
	}

	receiver, err := f.store.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get receiver: %v", err)
	}
	if receiver.MessagesReceived != 0 {
		t.Fatalf("no message must be stored, counter is %d", receiver.MessagesReceived)
	}
	if len(f.notifier.To(1)) != 0 {
		t.Fatalf("receiver must not be notified")
	}
}

func TestReplyReachesCounterpart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "")
	f.user(t, 2, "")
	f.user(t, 3, "")

	msg, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "question")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if err := f.recorder.Reply(ctx, 1, msg.ID, "answer"); err != nil {
		t.Fatalf("receiver reply: %v", err)
	}
	n, ok := f.notifier.Last(2)
	if !ok || !strings.Contains(n.Text, "answer") || !n.HasAction(action.ReplyBack(msg.ID)) {
		t.Fatalf("sender did not get the reply: %#v", n)
	}

	if err := f.recorder.Reply(ctx, 2, msg.ID, "thanks"); err != nil {
		t.Fatalf("sender reply: %v", err)
	}
	n, ok = f.notifier.Last(1)
	if !ok || !strings.Contains(n.Text, "thanks") || !n.HasAction(action.Reply(msg.ID)) {
		t.Fatalf("receiver did not get the reply back: %#v", n)
	}

	if err := f.recorder.Reply(ctx, 3, msg.ID, "intrusion"); !errors.Is(err, errs.ErrUnknownMessage) {
		t.Fatalf("stranger reply must fail with unknown message, got %v", err)
	}
	if err := f.recorder.Reply(ctx, 1, msg.ID+100, "lost"); !errors.Is(err, errs.ErrUnknownMessage) {
		t.Fatalf("reply to missing message must fail, got %v", err)
	}
}

func TestRevealOnlyByReceiverAndOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "")
	f.user(t, 2, "secret_bob")

	msg, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "guess who")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if err := f.recorder.RevealOffer(ctx, 2, msg.ID); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("sender must not reveal, got %v", err)
	}
	if err := f.recorder.RevealOffer(ctx, 1, msg.ID); err != nil {
		t.Fatalf("reveal offer: %v", err)
	}
	n, ok := f.notifier.Last(1)
	if !ok || !n.HasAction(action.RevealConfirm(msg.ID)) {
		t.Fatalf("offer misses confirm affordance: %#v", n)
	}

	revealed, err := f.recorder.Reveal(ctx, 1, msg.ID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if !revealed.Revealed {
		t.Fatalf("message not marked revealed")
	}
	n, _ = f.notifier.Last(1)
	if !strings.Contains(n.Text, "@secret_bob") {
		t.Fatalf("identity not delivered: %q", n.Text)
	}

	stored, err := f.store.GetMessage(ctx, msg.ID)
	if err != nil || !stored.Revealed {
		t.Fatalf("revealed flag not persisted: %#v %v", stored, err)
	}
	if _, err := f.recorder.Reveal(ctx, 1, msg.ID); err != nil {
		t.Fatalf("second reveal must be harmless: %v", err)
	}
}

func TestStatsSinceStartOfDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 1, "")
	f.user(t, 2, "")
	f.recorder.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	if err := f.recorder.RecordVisit(ctx, 2, 1); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if _, err := f.recorder.ComposeAndDeliver(ctx, 2, 1, "hi"); err != nil {
		t.Fatalf("compose: %v", err)
	}

	stats, err := f.recorder.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MessagesToday != 0 || stats.VisitsToday != 0 {
		t.Fatalf("records from two days ago counted as today: %#v", stats)
	}
	if stats.MessagesTotal != 1 || stats.VisitsTotal != 1 || stats.UniqueSenders != 1 {
		t.Fatalf("unexpected totals: %#v", stats)
	}
}

func TestComposeAndDeliverRejectsUnknownReceiver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.user(t, 2, "")

	if _, err := f.recorder.ComposeAndDeliver(ctx, 2, 777, "anyone?"); !errors.Is(err, errs.ErrInvalidLink) {
		t.Fatalf("expected invalid link, got %v", err)
	}
	stats, err := f.store.GetStats(ctx, 777, db.StartOfDay(time.Now()))
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.MessagesTotal != 0 {
		t.Fatalf("no message must be stored, got %d", stats.MessagesTotal)
	}
	if len(f.notifier.To(777)) != 0 {
		t.Fatalf("unknown receiver must not be notified")
	}
}
