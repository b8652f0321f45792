// Package action encodes and decodes the callback data carried by inline buttons.
package action

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindLanguage      Kind = "lang"
	KindShare         Kind = "share"
	KindMenu          Kind = "menu"
	KindReply         Kind = "reply"
	KindReplyBack     Kind = "reply_back"
	KindReveal        Kind = "reveal"
	KindRevealConfirm Kind = "reveal_confirm"
	KindReport        Kind = "report"
	KindAppeal        Kind = "appeal"
	KindAdmin         Kind = "admin"
)

const (
	MenuOpen     = "open"
	MenuStats    = "stats"
	MenuIdea     = "idea"
	MenuSupport  = "support"
	MenuSettings = "settings"

	AppealStart = "start"

	AdminBlock   = "block"
	AdminUnblock = "unblock"
	AdminBan     = "ban"
	AdminAppeal  = "appeal"

	DecisionAccept = "accept"
	DecisionReject = "reject"
)

const separator = ":"

// Action is a parsed button payload. Only the fields relevant to Kind are set.
type Action struct {
	Kind Kind
	// Verb is the menu item, admin verb, appeal step or language code.
	Verb string
	// ID is a user, message or appeal identifier depending on Kind and Verb.
	ID       int64
	Decision string
}

var ErrMalformed = errors.New("malformed action")

func Language(lang string) string { return join(KindLanguage, lang) }
func Share(userID int64) string   { return join(KindShare, itoa(userID)) }
func Menu(item string) string     { return join(KindMenu, item) }
func Reply(messageID int64) string {
	return join(KindReply, itoa(messageID))
}
func ReplyBack(messageID int64) string {
	return join(KindReplyBack, itoa(messageID))
}
func Reveal(messageID int64) string {
	return join(KindReveal, itoa(messageID))
}
func RevealConfirm(messageID int64) string {
	return join(KindRevealConfirm, itoa(messageID))
}
func Report(messageID int64) string {
	return join(KindReport, itoa(messageID))
}
func Appeal() string { return join(KindAppeal, AppealStart) }

func AdminOnUser(verb string, userID int64) string {
	return join(KindAdmin, verb, itoa(userID))
}

func AdminOnAppeal(appealID int64, decision string) string {
	return join(KindAdmin, AdminAppeal, itoa(appealID), decision)
}

// String renders the action back into callback data.
func (a Action) String() string {
	switch a.Kind {
	case KindLanguage, KindMenu, KindAppeal:
		return join(a.Kind, a.Verb)
	case KindAdmin:
		if a.Verb == AdminAppeal {
			return AdminOnAppeal(a.ID, a.Decision)
		}
		return AdminOnUser(a.Verb, a.ID)
	default:
		return join(a.Kind, itoa(a.ID))
	}
}

func Parse(data string) (Action, error) {
	parts := strings.Split(data, separator)
	if len(parts) < 2 {
		return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
	}
	a := Action{Kind: Kind(parts[0])}
	switch a.Kind {
	case KindLanguage:
		if len(parts) != 2 || (parts[1] != "ru" && parts[1] != "en") {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
		a.Verb = parts[1]
	case KindMenu:
		if len(parts) != 2 {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
		switch parts[1] {
		case MenuOpen, MenuStats, MenuIdea, MenuSupport, MenuSettings:
			a.Verb = parts[1]
		default:
			return Action{}, errors.Wrapf(ErrMalformed, "unknown menu item %q", parts[1])
		}
	case KindAppeal:
		if len(parts) != 2 || parts[1] != AppealStart {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
		a.Verb = parts[1]
	case KindShare, KindReply, KindReplyBack, KindReveal, KindRevealConfirm, KindReport:
		if len(parts) != 2 {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Action{}, errors.Wrapf(err, "%q", data)
		}
		a.ID = id
	case KindAdmin:
		return parseAdmin(data, parts[1:])
	default:
		return Action{}, errors.Wrapf(ErrMalformed, "unknown kind %q", parts[0])
	}
	return a, nil
}

func parseAdmin(data string, parts []string) (Action, error) {
	a := Action{Kind: KindAdmin, Verb: parts[0]}
	switch a.Verb {
	case AdminBlock, AdminUnblock, AdminBan:
		if len(parts) != 2 {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
	case AdminAppeal:
		if len(parts) != 3 || (parts[2] != DecisionAccept && parts[2] != DecisionReject) {
			return Action{}, errors.Wrapf(ErrMalformed, "%q", data)
		}
		a.Decision = parts[2]
	default:
		return Action{}, errors.Wrapf(ErrMalformed, "unknown admin verb %q", a.Verb)
	}
	id, err := parseID(parts[1])
	if err != nil {
		return Action{}, errors.Wrapf(err, "%q", data)
	}
	a.ID = id
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformed
	}
	return id, nil
}

func join(kind Kind, parts ...string) string {
	return string(kind) + separator + strings.Join(parts, separator)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
