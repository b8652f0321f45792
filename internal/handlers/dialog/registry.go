package dialog

import "sync"

// PendingKind tells what the next free text of a user is meant to be.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingComposeMessageTo
	PendingReplyTo
	PendingReportReasonFor
	PendingEnterIdea
	PendingEnterAppeal
)

func (k PendingKind) String() string {
	switch k {
	case PendingComposeMessageTo:
		return "compose_message_to"
	case PendingReplyTo:
		return "reply_to"
	case PendingReportReasonFor:
		return "report_reason_for"
	case PendingEnterIdea:
		return "enter_idea"
	case PendingEnterAppeal:
		return "enter_appeal"
	}
	return "none"
}

// Pending is a tagged pending action. TargetID is set for compose, MessageID for reply and report.
type Pending struct {
	Kind      PendingKind
	TargetID  int64
	MessageID int64
}

func ComposeMessageTo(targetID int64) Pending {
	return Pending{Kind: PendingComposeMessageTo, TargetID: targetID}
}

func ReplyTo(messageID int64) Pending {
	return Pending{Kind: PendingReplyTo, MessageID: messageID}
}

func ReportReasonFor(messageID int64) Pending {
	return Pending{Kind: PendingReportReasonFor, MessageID: messageID}
}

func EnterIdea() Pending {
	return Pending{Kind: PendingEnterIdea}
}

func EnterAppeal() Pending {
	return Pending{Kind: PendingEnterAppeal}
}

// Registry keeps at most one pending action per user for the process lifetime.
type Registry struct {
	mutex   sync.Mutex
	pending map[int64]Pending
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[int64]Pending)}
}

// Set replaces any pending action of the user.
func (r *Registry) Set(userID int64, p Pending) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.pending[userID] = p
}

// Consume returns and removes the pending action of the user.
func (r *Registry) Consume(userID int64) (Pending, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, ok := r.pending[userID]
	if ok {
		delete(r.pending, userID)
	}
	return p, ok
}

func (r *Registry) Peek(userID int64) (Pending, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, ok := r.pending[userID]
	return p, ok
}

func (r *Registry) Clear(userID int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.pending, userID)
}

func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.pending)
}
