// Package dialog routes start links, commands, button presses and free text to the inbox and moderation handlers.
package dialog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/whosent/internal/action"
	"github.com/iamwavecut/whosent/internal/db"
	errs "github.com/iamwavecut/whosent/internal/errors"
	"github.com/iamwavecut/whosent/internal/handlers/inbox"
	"github.com/iamwavecut/whosent/internal/handlers/moderation"
	"github.com/iamwavecut/whosent/internal/i18n"
	"github.com/iamwavecut/whosent/internal/notify"
)

const (
	CommandStart   = "start"
	CommandMenu    = "menu"
	CommandLang    = "lang"
	CommandBlock   = "block"
	CommandUnblock = "unblock"
	CommandBan     = "ban"
	CommandAppeals = "appeals"
)

var languageFlags = map[string]string{
	db.LanguageRU: "🇷🇺",
	db.LanguageEN: "🇬🇧",
}

type Config struct {
	BotUsername     string
	SupportUsername string
}

type Router struct {
	store      db.Client
	registry   *Registry
	inbox      *inbox.Recorder
	moderation *moderation.Engine
	notifier   notify.Notifier
	tr         i18n.Translator
	cfg        Config
	logger     *log.Entry
}

func NewRouter(
	store db.Client,
	registry *Registry,
	recorder *inbox.Recorder,
	engine *moderation.Engine,
	notifier notify.Notifier,
	tr i18n.Translator,
	cfg Config,
) *Router {
	return &Router{
		store:      store,
		registry:   registry,
		inbox:      recorder,
		moderation: engine,
		notifier:   notifier,
		tr:         tr,
		cfg:        cfg,
		logger:     log.WithField("handler", "dialog"),
	}
}

// HandleStart serves /start: onboarding without payload, the deep link flow with one.
func (r *Router) HandleStart(ctx context.Context, ev StartEvent) error {
	user, created, err := r.touch(ctx, ev.From)
	if err != nil {
		return r.fail(ctx, ev.From.ID, db.DefaultLanguage, err)
	}
	lang := user.Language

	payload := strings.TrimSpace(ev.Payload)
	if payload == "" {
		if created {
			r.sendLanguagePicker(ctx, user.ID, r.tr.Get("👋 Welcome! Please choose your language:", lang))
			return nil
		}
		r.sendOnboarding(ctx, user.ID, lang)
		return nil
	}

	targetID, err := parseTarget(payload)
	if err != nil {
		return r.fail(ctx, user.ID, lang, err)
	}
	if targetID != user.ID {
		target, err := r.store.GetUser(ctx, targetID)
		if err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		if target == nil {
			return r.fail(ctx, user.ID, lang, errs.ErrInvalidLink)
		}
	}
	if err := r.inbox.RecordVisit(ctx, user.ID, targetID); err != nil {
		return r.fail(ctx, user.ID, lang, err)
	}
	if targetID == user.ID {
		r.sendOnboarding(ctx, user.ID, lang)
		return nil
	}

	blocked, permanent, err := r.moderation.BlockStatus(ctx, user.ID)
	if err != nil {
		return r.fail(ctx, user.ID, lang, err)
	}
	switch {
	case permanent:
		return r.fail(ctx, user.ID, lang, errs.ErrPermanentlyBanned)
	case blocked:
		return r.fail(ctx, user.ID, lang, errs.ErrBlocked)
	}

	r.registry.Set(user.ID, ComposeMessageTo(targetID))
	r.notifier.Notify(ctx, user.ID, r.tr.Get("✉️ Write an anonymous message to this user. Your username will not be shown unless the recipient reveals the sender.", lang))
	return nil
}

// HandleText dispatches free text by the pending action of the user.
func (r *Router) HandleText(ctx context.Context, ev TextEvent) error {
	user, _, err := r.touch(ctx, ev.From)
	if err != nil {
		return r.fail(ctx, ev.From.ID, db.DefaultLanguage, err)
	}
	lang := user.Language

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Only text messages are supported.", lang))
		return nil
	}

	pending, ok := r.registry.Consume(user.ID)
	if !ok {
		r.sendFallback(ctx, user.ID, lang)
		return nil
	}
	r.logger.WithFields(log.Fields{
		"user_id": user.ID,
		"pending": pending.Kind.String(),
	}).Trace("consumed pending action")

	switch pending.Kind {
	case PendingEnterIdea:
		if err := r.moderation.SubmitIdea(ctx, user.ID, text); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Thanks! Your idea has been sent to the administrators.", lang))

	case PendingEnterAppeal:
		if _, err := r.moderation.FileAppeal(ctx, user.ID, text); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Your appeal has been sent to the administrator.", lang))

	case PendingReplyTo:
		if err := r.inbox.Reply(ctx, user.ID, pending.MessageID, text); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, r.tr.Get("✅ Reply sent anonymously.", lang))

	case PendingReportReasonFor:
		if _, err := r.moderation.FileReport(ctx, pending.MessageID, user.ID, text); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Thank you, your report has been received.", lang))

	case PendingComposeMessageTo:
		if _, err := r.inbox.ComposeAndDeliver(ctx, user.ID, pending.TargetID, text); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, r.tr.Get("✅ Message sent anonymously. If the recipient replies, the reply will come via the bot.", lang))

	default:
		r.sendFallback(ctx, user.ID, lang)
	}
	return nil
}

func (r *Router) HandleCommand(ctx context.Context, ev CommandEvent) error {
	user, _, err := r.touch(ctx, ev.From)
	if err != nil {
		return r.fail(ctx, ev.From.ID, db.DefaultLanguage, err)
	}
	lang := user.Language

	switch ev.Command {
	case CommandMenu:
		r.sendMenu(ctx, user.ID, lang)
	case CommandLang:
		r.sendLanguagePicker(ctx, user.ID, r.tr.Get("Choose language:", lang))
	case CommandBlock, CommandUnblock, CommandBan:
		if !r.moderation.IsAdmin(user.ID) {
			return r.fail(ctx, user.ID, lang, errs.ErrNotAuthorized)
		}
		targetID, err := strconv.ParseInt(strings.TrimSpace(ev.Args), 10, 64)
		if err != nil || targetID <= 0 {
			r.notifier.Notify(ctx, user.ID, fmt.Sprintf(r.tr.Get("Usage: /%s <user_id>", lang), ev.Command))
			return nil
		}
		return r.applyAdmin(ctx, user.ID, lang, ev.Command, targetID)
	case CommandAppeals:
		if err := r.moderation.SendPendingAppeals(ctx, user.ID); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
	default:
		r.sendFallback(ctx, user.ID, lang)
	}
	return nil
}

// HandleButton performs the immediate effect of a button or seeds a pending action.
func (r *Router) HandleButton(ctx context.Context, ev ButtonEvent) error {
	user, _, err := r.touch(ctx, ev.From)
	if err != nil {
		r.notifier.Alert(ctx, ev.CallbackID, "")
		return r.fail(ctx, ev.From.ID, db.DefaultLanguage, err)
	}
	lang := user.Language

	a, err := action.Parse(ev.Data)
	if err != nil {
		r.logger.WithError(err).Debug("cant parse button data")
		r.notifier.Alert(ctx, ev.CallbackID, r.tr.Get("Error", lang))
		return nil
	}

	if a.Kind == action.KindAdmin && !r.moderation.IsAdmin(user.ID) {
		r.notifier.Alert(ctx, ev.CallbackID, r.tr.Get("You are not allowed to do this.", lang))
		return nil
	}
	r.notifier.Alert(ctx, ev.CallbackID, "")

	switch a.Kind {
	case action.KindLanguage:
		if err := r.store.SetLanguage(ctx, user.ID, a.Verb); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		lang = db.NormalizeLanguage(a.Verb)
		r.notifier.Notify(ctx, user.ID, r.tr.Get("✅ Language saved.", lang))
		r.sendOnboarding(ctx, user.ID, lang)

	case action.KindShare:
		link := r.personalLink(a.ID)
		r.notifier.Notify(ctx, user.ID,
			fmt.Sprintf(r.tr.Get("Copy and share the link:\n\n%s", lang), link),
			notify.Row{notify.Link(r.tr.Get("🔁 Share link", lang), "https://t.me/share/url?url="+url.QueryEscape(link))},
		)

	case action.KindMenu:
		return r.handleMenu(ctx, user, lang, a.Verb)

	case action.KindReply, action.KindReplyBack:
		if _, _, err := r.inbox.Counterpart(ctx, user.ID, a.ID); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.registry.Set(user.ID, ReplyTo(a.ID))
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Write your reply, it will be delivered anonymously:", lang))

	case action.KindReveal:
		if err := r.inbox.RevealOffer(ctx, user.ID, a.ID); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}

	case action.KindRevealConfirm:
		if _, err := r.inbox.Reveal(ctx, user.ID, a.ID); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}

	case action.KindReport:
		msg, err := r.store.GetMessage(ctx, a.ID)
		if err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		if msg == nil {
			return r.fail(ctx, user.ID, lang, errs.ErrUnknownMessage)
		}
		r.registry.Set(user.ID, ReportReasonFor(msg.ID))
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Describe the reason for the report (brief):", lang))

	case action.KindAppeal:
		if err := r.moderation.CheckAppealEligibility(ctx, user.ID); err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.registry.Set(user.ID, EnterAppeal())
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Write your appeal (one attempt):", lang))

	case action.KindAdmin:
		if a.Verb == action.AdminAppeal {
			if err := r.moderation.ProcessAppeal(ctx, user.ID, a.ID, a.Decision); err != nil {
				return r.fail(ctx, user.ID, lang, err)
			}
			return nil
		}
		return r.applyAdmin(ctx, user.ID, lang, a.Verb, a.ID)
	}
	return nil
}

func (r *Router) handleMenu(ctx context.Context, user *db.User, lang, item string) error {
	switch item {
	case action.MenuOpen:
		r.sendMenu(ctx, user.ID, lang)

	case action.MenuStats:
		stats, err := r.inbox.Stats(ctx, user.ID)
		if err != nil {
			return r.fail(ctx, user.ID, lang, err)
		}
		r.notifier.Notify(ctx, user.ID, fmt.Sprintf(
			r.tr.Get("📈 Statistics:\nToday: messages %d, visits %d\nAll time: messages %d, visits %d, unique senders %d", lang),
			stats.MessagesToday, stats.VisitsToday, stats.MessagesTotal, stats.VisitsTotal, stats.UniqueSenders,
		))

	case action.MenuIdea:
		r.registry.Set(user.ID, EnterIdea())
		r.notifier.Notify(ctx, user.ID, r.tr.Get("Describe your idea for the bot (brief):", lang))

	case action.MenuSupport:
		if r.cfg.SupportUsername == "" {
			r.notifier.Notify(ctx, user.ID, r.tr.Get("Support is not configured.", lang))
			return nil
		}
		supportURL := "https://t.me/" + r.cfg.SupportUsername
		r.notifier.Notify(ctx, user.ID,
			fmt.Sprintf(r.tr.Get("Support: %s", lang), supportURL),
			notify.Row{notify.Link(r.tr.Get("🛠 Support", lang), supportURL)},
		)

	case action.MenuSettings:
		r.sendLanguagePicker(ctx, user.ID, r.tr.Get("Choose language:", lang))
	}
	return nil
}

func (r *Router) applyAdmin(ctx context.Context, callerID int64, lang, verb string, targetID int64) error {
	var err error
	switch verb {
	case action.AdminBlock:
		err = r.moderation.ApplyBlock(ctx, callerID, targetID, false)
	case action.AdminBan:
		err = r.moderation.ApplyBlock(ctx, callerID, targetID, true)
	case action.AdminUnblock:
		err = r.moderation.ApplyUnblock(ctx, callerID, targetID)
	}
	if err != nil {
		return r.fail(ctx, callerID, lang, err)
	}
	return nil
}

// touch refreshes the user row and reports whether it was created by this event.
func (r *Router) touch(ctx context.Context, from Identity) (*db.User, bool, error) {
	username := from.Username
	if username != nil && *username == "" {
		username = nil
	}
	user, created, err := r.store.EnsureUser(ctx, from.ID, username, from.FirstName)
	if err != nil {
		return nil, false, errors.WithMessage(err, "cant ensure user")
	}
	user.Language = db.NormalizeLanguage(user.Language)
	return user, created, nil
}

// fail maps an error kind to a user visible text. Only unexpected errors are returned.
func (r *Router) fail(ctx context.Context, userID int64, lang string, err error) error {
	switch {
	case errs.Is(err, errs.ErrInvalidLink):
		r.notifier.Notify(ctx, userID, r.tr.Get("Invalid link.", lang))
	case errs.Is(err, errs.ErrUnknownMessage):
		r.notifier.Notify(ctx, userID, r.tr.Get("Original message not found.", lang))
	case errs.Is(err, errs.ErrNotFound):
		r.notifier.Notify(ctx, userID, r.tr.Get("Appeal not found.", lang))
	case errs.Is(err, errs.ErrNotAuthorized):
		r.notifier.Notify(ctx, userID, r.tr.Get("You are not allowed to do this.", lang))
	case errs.Is(err, errs.ErrPermanentlyBanned):
		r.notifier.Notify(ctx, userID, r.tr.Get("⛔ You are permanently banned. No appeals possible.", lang))
	case errs.Is(err, errs.ErrBlocked):
		r.sendBlockedNotice(ctx, userID, lang)
	case errs.Is(err, errs.ErrNotBlocked):
		r.notifier.Notify(ctx, userID, r.tr.Get("You are not blocked.", lang))
	case errs.Is(err, errs.ErrAlreadyAppealed):
		r.notifier.Notify(ctx, userID, r.tr.Get("You have already filed an appeal.", lang))
	default:
		r.notifier.Notify(ctx, userID, r.tr.Get("Something went wrong, please try again later.", lang))
		return err
	}
	return nil
}

func (r *Router) sendBlockedNotice(ctx context.Context, userID int64, lang string) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		r.logger.WithError(err).Warn("cant get blocked user")
	}
	if user != nil && user.Appealed {
		r.notifier.Notify(ctx, userID, r.tr.Get("🚫 You are temporarily blocked and cannot send messages. Your appeal has already been used.", lang))
		return
	}
	r.notifier.Notify(ctx, userID,
		r.tr.Get("🚫 You are temporarily blocked and cannot send messages. You have one chance to file an appeal.", lang),
		notify.Row{notify.Button(r.tr.Get("📝 File an appeal", lang), action.Appeal())},
	)
}

func (r *Router) sendOnboarding(ctx context.Context, userID int64, lang string) {
	link := r.personalLink(userID)
	r.notifier.Notify(ctx, userID,
		fmt.Sprintf(r.tr.Get("Start receiving anonymous messages right now.\n\nYour personal link:\n%s\n\nPlace the link in your profile so people can message you anonymously.", lang), link),
		notify.Row{notify.Link(r.tr.Get("🔗 Open link", lang), link)},
		notify.Row{notify.Button(r.tr.Get("🔁 Share link", lang), action.Share(userID))},
		notify.Row{notify.Button(r.tr.Get("📋 Menu", lang), action.Menu(action.MenuOpen))},
	)
}

func (r *Router) sendMenu(ctx context.Context, userID int64, lang string) {
	r.notifier.Notify(ctx, userID, r.tr.Get("Main menu", lang),
		notify.Row{notify.Button(r.tr.Get("📊 Statistics", lang), action.Menu(action.MenuStats))},
		notify.Row{notify.Button(r.tr.Get("💡 Suggest an idea", lang), action.Menu(action.MenuIdea))},
		notify.Row{notify.Button(r.tr.Get("🛠 Support", lang), action.Menu(action.MenuSupport))},
		notify.Row{notify.Button(r.tr.Get("⚙️ Settings", lang), action.Menu(action.MenuSettings))},
	)
}

func (r *Router) sendLanguagePicker(ctx context.Context, userID int64, text string) {
	row := make(notify.Row, 0, len(i18n.Languages()))
	for _, code := range i18n.Languages() {
		row = append(row, notify.Button(languageFlags[code]+" "+i18n.GetLanguageName(code), action.Language(code)))
	}
	r.notifier.Notify(ctx, userID, text, row)
}

func (r *Router) sendFallback(ctx context.Context, userID int64, lang string) {
	r.notifier.Notify(ctx, userID, r.tr.Get("Use /start to get your link or open the menu.", lang),
		notify.Row{notify.Button(r.tr.Get("📋 Menu", lang), action.Menu(action.MenuOpen))},
	)
}

func (r *Router) personalLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", r.cfg.BotUsername, userID)
}

func parseTarget(payload string) (int64, error) {
	targetID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || targetID <= 0 {
		return 0, errs.ErrInvalidLink
	}
	return targetID, nil
}
