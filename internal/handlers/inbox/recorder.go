// Package inbox stores anonymous messages and link visits and delivers them to their recipients.
package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/action"
	"github.com/iamwavecut/whosent/internal/db"
	errs "github.com/iamwavecut/whosent/internal/errors"
	"github.com/iamwavecut/whosent/internal/i18n"
	"github.com/iamwavecut/whosent/internal/notify"
	"github.com/iamwavecut/whosent/internal/observability"
)

// BlockChecker reports the current block state of a user.
type BlockChecker interface {
	BlockStatus(ctx context.Context, userID int64) (blocked, permanent bool, err error)
}

type Recorder struct {
	store       db.Client
	blocks      BlockChecker
	notifier    notify.Notifier
	tr          i18n.Translator
	revealPrice int
	now         func() time.Time
	logger      *log.Entry
}

func NewRecorder(store db.Client, blocks BlockChecker, notifier notify.Notifier, tr i18n.Translator, revealPrice int) *Recorder {
	return &Recorder{
		store:       store,
		blocks:      blocks,
		notifier:    notifier,
		tr:          tr,
		revealPrice: revealPrice,
		now:         time.Now,
		logger:      log.WithField("handler", "inbox"),
	}
}

// RecordVisit appends a visit, self and repeat visits included.
func (r *Recorder) RecordVisit(ctx context.Context, visitorID, targetID int64) error {
	if _, err := r.store.CreateVisit(ctx, visitorID, targetID); err != nil {
		return errors.WithMessage(err, "cant record visit")
	}
	observability.RecordVisit()
	return nil
}

// ComposeAndDeliver re-checks the sender block state and the target, stores the message and notifies the target.
func (r *Recorder) ComposeAndDeliver(ctx context.Context, senderID, targetID int64, body string) (*db.Message, error) {
	if err := r.ensureCanSend(ctx, senderID); err != nil {
		return nil, err
	}

	receiver, err := r.store.GetUser(ctx, targetID)
	if err != nil {
		return nil, errors.WithMessage(err, "cant get receiver")
	}
	if receiver == nil {
		return nil, errs.ErrInvalidLink
	}

	sender, err := r.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, errors.WithMessage(err, "cant get sender")
	}
	msg := &db.Message{
		SenderID:   senderID,
		ReceiverID: targetID,
		Text:       body,
	}
	if sender != nil {
		msg.SenderUsername = sender.Username
		msg.SenderFirstName = sender.FirstName
	}
	if msg, err = r.store.CreateMessage(ctx, msg); err != nil {
		return nil, errors.WithMessage(err, "cant create message")
	}
	observability.RecordMessage()
	r.logger.WithFields(log.Fields{
		"message_id":  msg.ID,
		"receiver_id": targetID,
	}).Debug("message stored")

	lang := r.language(ctx, targetID)
	r.notifier.Notify(ctx, targetID,
		fmt.Sprintf(r.tr.Get("📩 You have a new anonymous message:\n\n%s\n\nYou can reply for free or report it.", lang), body),
		notify.Row{
			notify.Button(r.tr.Get("💬 Reply", lang), action.Reply(msg.ID)),
			notify.Button(fmt.Sprintf(r.tr.Get("⭐ Reveal (%d★)", lang), r.revealPrice), action.Reveal(msg.ID)),
		},
		notify.Row{
			notify.Button(r.tr.Get("🚨 Report", lang), action.Report(msg.ID)),
		},
	)
	return msg, nil
}

// Counterpart resolves whom a reply of userID on the message reaches.
func (r *Recorder) Counterpart(ctx context.Context, userID, messageID int64) (*db.Message, int64, error) {
	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, 0, errors.WithMessage(err, "cant get message")
	}
	if msg == nil {
		return nil, 0, errs.ErrUnknownMessage
	}
	switch userID {
	case msg.ReceiverID:
		return msg, msg.SenderID, nil
	case msg.SenderID:
		return msg, msg.ReceiverID, nil
	}
	return nil, 0, errs.ErrUnknownMessage
}

// Reply forwards body anonymously to the other side of the message.
func (r *Recorder) Reply(ctx context.Context, replierID, messageID int64, body string) error {
	msg, recipientID, err := r.Counterpart(ctx, replierID, messageID)
	if err != nil {
		return err
	}
	if err := r.ensureCanSend(ctx, replierID); err != nil {
		return err
	}

	lang := r.language(ctx, recipientID)
	if recipientID == msg.SenderID {
		r.notifier.Notify(ctx, recipientID,
			fmt.Sprintf(r.tr.Get("📨 Your message received a reply:\n\n%s", lang), body),
			notify.Row{notify.Button(r.tr.Get("💬 Reply", lang), action.ReplyBack(msg.ID))},
		)
		return nil
	}
	r.notifier.Notify(ctx, recipientID,
		fmt.Sprintf(r.tr.Get("📨 The sender answered you:\n\n%s", lang), body),
		notify.Row{notify.Button(r.tr.Get("💬 Reply", lang), action.Reply(msg.ID))},
	)
	return nil
}

// RevealOffer shows the simulated price, or the identity when the message is already revealed.
func (r *Recorder) RevealOffer(ctx context.Context, userID, messageID int64) error {
	msg, err := r.receivedMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if msg.Revealed {
		r.deliverIdentity(ctx, userID, msg)
		return nil
	}

	lang := r.language(ctx, userID)
	r.notifier.Notify(ctx, userID,
		fmt.Sprintf(r.tr.Get("⭐ Revealing the sender costs %d★ (simulation).", lang), r.revealPrice),
		notify.Row{notify.Button(fmt.Sprintf(r.tr.Get("✅ Pay %d★ and reveal", lang), r.revealPrice), action.RevealConfirm(msg.ID))},
	)
	return nil
}

// Reveal flips the revealed flag once and shows the sender snapshot to the receiver.
func (r *Recorder) Reveal(ctx context.Context, userID, messageID int64) (*db.Message, error) {
	msg, err := r.receivedMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	flipped, err := r.store.MarkRevealed(ctx, msg.ID)
	if err != nil {
		return nil, errors.WithMessage(err, "cant mark revealed")
	}
	if flipped {
		r.logger.WithField("message_id", msg.ID).Info("sender revealed")
	}
	msg.Revealed = true
	r.deliverIdentity(ctx, userID, msg)
	return msg, nil
}

// Stats returns received message and visit counters for today (UTC) and all time.
func (r *Recorder) Stats(ctx context.Context, userID int64) (*db.Stats, error) {
	stats, err := r.store.GetStats(ctx, userID, db.StartOfDay(r.now()))
	if err != nil {
		return nil, errors.WithMessage(err, "cant get stats")
	}
	return stats, nil
}

func (r *Recorder) ensureCanSend(ctx context.Context, userID int64) error {
	blocked, permanent, err := r.blocks.BlockStatus(ctx, userID)
	if err != nil {
		return errors.WithMessage(err, "cant check block status")
	}
	switch {
	case permanent:
		return errs.ErrPermanentlyBanned
	case blocked:
		return errs.ErrBlocked
	}
	return nil
}

func (r *Recorder) receivedMessage(ctx context.Context, userID, messageID int64) (*db.Message, error) {
	msg, err := r.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, errors.WithMessage(err, "cant get message")
	}
	if msg == nil {
		return nil, errs.ErrUnknownMessage
	}
	if msg.ReceiverID != userID {
		return nil, errs.ErrNotAuthorized
	}
	return msg, nil
}

func (r *Recorder) deliverIdentity(ctx context.Context, userID int64, msg *db.Message) {
	lang := r.language(ctx, userID)
	handle := db.Handle(msg.SenderUsername)
	if handle == "" {
		handle = r.tr.Get("(no username)", lang)
	}
	r.notifier.Notify(ctx, userID,
		fmt.Sprintf(r.tr.Get("🔓 Message #%d was sent by %s (%s).", lang), msg.ID, msg.SenderFirstName, handle),
	)
}

func (r *Recorder) language(ctx context.Context, userID int64) string {
	lang, err := r.store.GetLanguage(ctx, userID)
	if err != nil {
		r.logger.WithError(err).Warn("cant get language")
	}
	return lang
}
