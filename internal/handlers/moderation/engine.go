// Package moderation files reports, escalates repeat offenders to the admin and applies blocks and appeals.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/action"
	"github.com/iamwavecut/whosent/internal/db"
	errs "github.com/iamwavecut/whosent/internal/errors"
	"github.com/iamwavecut/whosent/internal/i18n"
	"github.com/iamwavecut/whosent/internal/notify"
	"github.com/iamwavecut/whosent/internal/observability"
)

const (
	reportPreviewLen     = 200
	reportReasonLen      = 500
	escalationPreviewLen = 120
	forwardedTextLen     = 3500

	// maxNoticeLen keeps admin notices below the telegram limit of 4096 characters.
	maxNoticeLen = 4000

	reasonBlockedByAdmin = "Blocked by admin"
	reasonBannedByAdmin  = "Banned by admin"
)

type Config struct {
	AdminID         int64
	ReportThreshold int
}

type Engine struct {
	store     db.Client
	notifier  notify.Notifier
	tr        i18n.Translator
	adminID   int64
	threshold int
	logger    *log.Entry
}

func NewEngine(store db.Client, notifier notify.Notifier, tr i18n.Translator, cfg Config) *Engine {
	threshold := cfg.ReportThreshold
	if threshold < 1 {
		threshold = 3
	}
	return &Engine{
		store:     store,
		notifier:  notifier,
		tr:        tr,
		adminID:   cfg.AdminID,
		threshold: threshold,
		logger:    log.WithField("handler", "moderation"),
	}
}

func (e *Engine) IsAdmin(userID int64) bool {
	return e.adminID != 0 && userID == e.adminID
}

// FileReport stores the report, informs the admin and escalates once enough distinct users reported the sender.
func (e *Engine) FileReport(ctx context.Context, messageID, reporterID int64, reason string) (*db.Report, error) {
	report, err := e.store.CreateReport(ctx, &db.Report{
		MessageID:  messageID,
		ReporterID: reporterID,
		Reason:     reason,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "cant create report")
	}
	observability.RecordReport()

	msg, err := e.store.GetMessage(ctx, messageID)
	if err != nil {
		return report, errors.WithMessage(err, "cant resolve reported message")
	}
	if msg == nil {
		e.logger.WithField("message_id", messageID).Warn("reported message does not resolve")
		return report, nil
	}

	lang := e.language(ctx, e.adminID)
	e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(
		e.tr.Get("🚨 Report on message #%d\nSender (ID): %d\nUsername: %s\nText: %s\nReason: %s\nFrom: %d", lang),
		msg.ID, msg.SenderID, e.handle(msg.SenderUsername, lang), preview(msg.Text, reportPreviewLen), preview(reason, reportReasonLen), reporterID,
	))

	count, err := e.UniqueReporterCount(ctx, msg.SenderID)
	if err != nil {
		return report, err
	}
	if count >= e.threshold {
		if err := e.escalate(ctx, msg.SenderID, count, lang); err != nil {
			return report, err
		}
	}
	return report, nil
}

// UniqueReporterCount counts distinct reporters over every message of the sender.
func (e *Engine) UniqueReporterCount(ctx context.Context, senderID int64) (int, error) {
	count, err := e.store.CountUniqueReporters(ctx, senderID)
	if err != nil {
		return 0, errors.WithMessage(err, "cant count unique reporters")
	}
	return count, nil
}

func (e *Engine) escalate(ctx context.Context, senderID int64, count int, lang string) error {
	reports, err := e.store.ListReportsForSender(ctx, senderID)
	if err != nil {
		return errors.WithMessage(err, "cant list reports")
	}

	header := fmt.Sprintf(e.tr.Get("🚨 User %d has %d unique reports. Reports:", lang), senderID, count)
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf(e.tr.Get("- Report #%d on message #%d by %d: %s\n  msg: %s", lang),
			r.ID, r.MessageID, r.ReporterID, preview(r.Reason, escalationPreviewLen), preview(r.MessageText, escalationPreviewLen)))
	}

	// The action buttons go with the last part.
	parts := splitNotice(header, lines, maxNoticeLen)
	for _, part := range parts[:len(parts)-1] {
		e.notifier.Notify(ctx, e.adminID, part)
	}
	e.notifier.Notify(ctx, e.adminID, parts[len(parts)-1],
		notify.Row{notify.Button(e.tr.Get("🔒 Block user", lang), action.AdminOnUser(action.AdminBlock, senderID))},
		notify.Row{notify.Button(e.tr.Get("🔓 Unblock user", lang), action.AdminOnUser(action.AdminUnblock, senderID))},
		notify.Row{notify.Button(e.tr.Get("⛔ Ban permanently", lang), action.AdminOnUser(action.AdminBan, senderID))},
	)
	observability.RecordEscalation()
	e.logger.WithFields(log.Fields{
		"sender_id": senderID,
		"reporters": count,
	}).Info("sender escalated to admin")
	return nil
}

// ApplyBlock blocks the target temporarily or, with permanent set, bans it.
func (e *Engine) ApplyBlock(ctx context.Context, callerID, targetID int64, permanent bool) error {
	if !e.IsAdmin(callerID) {
		return errs.ErrNotAuthorized
	}
	block := &db.Block{
		UserID:      targetID,
		Reason:      reasonBlockedByAdmin,
		Permanently: permanent,
	}
	if permanent {
		block.Reason = reasonBannedByAdmin
	}
	if err := e.store.UpsertBlock(ctx, block); err != nil {
		return errors.WithMessage(err, "cant block user")
	}

	lang := e.language(ctx, e.adminID)
	if permanent {
		observability.RecordModerationAction(action.AdminBan)
		e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(e.tr.Get("User %d permanently banned.", lang), targetID))
	} else {
		observability.RecordModerationAction(action.AdminBlock)
		e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(e.tr.Get("User %d blocked.", lang), targetID))
	}
	e.logger.WithFields(log.Fields{
		"user_id":   targetID,
		"permanent": permanent,
	}).Info("user blocked")
	return nil
}

func (e *Engine) ApplyUnblock(ctx context.Context, callerID, targetID int64) error {
	if !e.IsAdmin(callerID) {
		return errs.ErrNotAuthorized
	}
	if err := e.store.DeleteBlock(ctx, targetID); err != nil {
		return errors.WithMessage(err, "cant unblock user")
	}
	observability.RecordModerationAction(action.AdminUnblock)

	lang := e.language(ctx, e.adminID)
	e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(e.tr.Get("User %d unblocked.", lang), targetID))
	e.logger.WithField("user_id", targetID).Info("user unblocked")
	return nil
}

func (e *Engine) BlockStatus(ctx context.Context, userID int64) (blocked, permanent bool, err error) {
	block, err := e.store.GetBlock(ctx, userID)
	if err != nil {
		return false, false, errors.WithMessage(err, "cant get block")
	}
	if block == nil {
		return false, false, nil
	}
	return true, block.Permanently, nil
}

// CheckAppealEligibility returns nil only for temporarily blocked users that never appealed.
func (e *Engine) CheckAppealEligibility(ctx context.Context, userID int64) error {
	blocked, permanent, err := e.BlockStatus(ctx, userID)
	if err != nil {
		return err
	}
	switch {
	case !blocked:
		return errs.ErrNotBlocked
	case permanent:
		return errs.ErrPermanentlyBanned
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return errors.WithMessage(err, "cant get user")
	}
	if user != nil && user.Appealed {
		return errs.ErrAlreadyAppealed
	}
	return nil
}

// FileAppeal consumes the one-shot appeal of the user and forwards it to the admin.
func (e *Engine) FileAppeal(ctx context.Context, userID int64, text string) (*db.Appeal, error) {
	if err := e.CheckAppealEligibility(ctx, userID); err != nil {
		return nil, err
	}
	appeal, err := e.store.FileAppeal(ctx, &db.Appeal{UserID: userID, Text: text})
	if err != nil {
		if errs.Is(err, errs.ErrAlreadyAppealed) {
			return nil, err
		}
		return nil, errors.WithMessage(err, "cant file appeal")
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		e.logger.WithError(err).Warn("cant get appealing user")
	}
	var username *string
	if user != nil {
		username = user.Username
	}

	lang := e.language(ctx, e.adminID)
	e.notifier.Notify(ctx, e.adminID,
		fmt.Sprintf(e.tr.Get("📝 Appeal #%d from %d\nUsername: %s\nText:\n%s", lang), appeal.ID, userID, e.handle(username, lang), preview(text, forwardedTextLen)),
		e.appealRows(appeal, lang)...,
	)
	return appeal, nil
}

// ProcessAppeal marks the appeal processed. Accepting does not unblock the user.
func (e *Engine) ProcessAppeal(ctx context.Context, callerID, appealID int64, decision string) error {
	if !e.IsAdmin(callerID) {
		return errs.ErrNotAuthorized
	}
	appeal, err := e.store.GetAppeal(ctx, appealID)
	if err != nil {
		return errors.WithMessage(err, "cant get appeal")
	}
	if appeal == nil {
		return errs.ErrNotFound
	}
	processed, err := e.store.MarkAppealProcessed(ctx, appealID)
	if err != nil {
		return errors.WithMessage(err, "cant mark appeal processed")
	}

	lang := e.language(ctx, e.adminID)
	if !processed {
		e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(e.tr.Get("Appeal #%d was already processed.", lang), appealID))
		return nil
	}
	observability.RecordModerationAction("appeal_" + decision)

	verdict := e.tr.Get("rejected", lang)
	if decision == action.DecisionAccept {
		verdict = e.tr.Get("accepted", lang)
	}
	e.notifier.Notify(ctx, e.adminID, fmt.Sprintf(e.tr.Get("Appeal #%d from user %d processed: %s.", lang), appealID, appeal.UserID, verdict))
	return nil
}

// PendingAppeals lists unprocessed appeals for the admin.
func (e *Engine) PendingAppeals(ctx context.Context, callerID int64) ([]*db.Appeal, error) {
	if !e.IsAdmin(callerID) {
		return nil, errs.ErrNotAuthorized
	}
	appeals, err := e.store.ListUnprocessedAppeals(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "cant list appeals")
	}
	return appeals, nil
}

// SendPendingAppeals renders every unprocessed appeal to the admin with decision affordances.
func (e *Engine) SendPendingAppeals(ctx context.Context, callerID int64) error {
	appeals, err := e.PendingAppeals(ctx, callerID)
	if err != nil {
		return err
	}
	lang := e.language(ctx, e.adminID)
	if len(appeals) == 0 {
		e.notifier.Notify(ctx, e.adminID, e.tr.Get("No pending appeals.", lang))
		return nil
	}
	for _, appeal := range appeals {
		e.notifier.Notify(ctx, e.adminID,
			fmt.Sprintf(e.tr.Get("📝 Appeal #%d from %d:\n%s", lang), appeal.ID, appeal.UserID, preview(appeal.Text, forwardedTextLen)),
			e.appealRows(appeal, lang)...,
		)
	}
	return nil
}

func (e *Engine) SubmitIdea(ctx context.Context, userID int64, text string) error {
	if _, err := e.store.CreateIdea(ctx, &db.Idea{FromUser: userID, Text: text}); err != nil {
		return errors.WithMessage(err, "cant create idea")
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		e.logger.WithError(err).Warn("cant get idea author")
	}
	var username *string
	if user != nil {
		username = user.Username
	}
	lang := e.language(ctx, e.adminID)
	e.notifier.Notify(ctx, e.adminID,
		fmt.Sprintf(e.tr.Get("💡 Idea from %s (ID %d):\n\n%s", lang), e.handle(username, lang), userID, preview(text, forwardedTextLen)),
	)
	return nil
}

func (e *Engine) appealRows(appeal *db.Appeal, lang string) []notify.Row {
	return []notify.Row{
		{
			notify.Button(e.tr.Get("✅ Accept", lang), action.AdminOnAppeal(appeal.ID, action.DecisionAccept)),
			notify.Button(e.tr.Get("❌ Reject", lang), action.AdminOnAppeal(appeal.ID, action.DecisionReject)),
		},
		{notify.Button(e.tr.Get("🔓 Unblock user", lang), action.AdminOnUser(action.AdminUnblock, appeal.UserID))},
	}
}

func (e *Engine) handle(username *string, lang string) string {
	if h := db.Handle(username); h != "" {
		return h
	}
	return e.tr.Get("(no username)", lang)
}

func (e *Engine) language(ctx context.Context, userID int64) string {
	lang, err := e.store.GetLanguage(ctx, userID)
	if err != nil {
		e.logger.WithError(err).Warn("cant get language")
	}
	return lang
}

// splitNotice joins header and lines with newlines into parts of at most limit runes.
// A single line longer than limit becomes its own part.
func splitNotice(header string, lines []string, limit int) []string {
	var parts []string
	var b strings.Builder
	b.WriteString(header)
	size := utf8.RuneCountInString(header)
	for _, line := range lines {
		lineSize := utf8.RuneCountInString(line)
		if size+1+lineSize > limit {
			parts = append(parts, b.String())
			b.Reset()
			b.WriteString(line)
			size = lineSize
			continue
		}
		b.WriteString("\n")
		b.WriteString(line)
		size += 1 + lineSize
	}
	return append(parts, b.String())
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
