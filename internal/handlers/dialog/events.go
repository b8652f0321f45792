package dialog

// Identity is the sender of an inbound event as reported by the transport.
type Identity struct {
	ID        int64
	Username  *string
	FirstName string
}

// StartEvent is /start with an optional deep link payload.
type StartEvent struct {
	From    Identity
	Payload string
}

// TextEvent is free text. Text is empty for non-text messages.
type TextEvent struct {
	From Identity
	Text string
}

type CommandEvent struct {
	From    Identity
	Command string
	Args    string
}

type ButtonEvent struct {
	From       Identity
	CallbackID string
	Data       string
}
