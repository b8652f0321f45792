package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const (
	LanguageRU = "ru"
	LanguageEN = "en"

	DefaultLanguage = LanguageRU
)

type (
	User struct {
		ID               int64     `db:"user_id"`
		Username         *string   `db:"username"`
		FirstName        string    `db:"first_name"`
		Language         string    `db:"language"`
		MessagesReceived int       `db:"messages_received"`
		Appealed         bool      `db:"appealed"`
		CreatedAt        Timestamp `db:"created_at"`
	}

	// Message is an anonymous message. Sender handle and name are a snapshot
	// taken at send time.
	Message struct {
		ID              int64     `db:"id"`
		SenderID        int64     `db:"sender_id"`
		SenderUsername  *string   `db:"sender_username"`
		SenderFirstName string    `db:"sender_first_name"`
		ReceiverID      int64     `db:"receiver_id"`
		Text            string    `db:"text"`
		Revealed        bool      `db:"revealed"`
		CreatedAt       Timestamp `db:"created_at"`
	}

	Visit struct {
		ID        int64     `db:"id"`
		VisitorID int64     `db:"visitor_id"`
		TargetID  int64     `db:"target_id"`
		CreatedAt Timestamp `db:"created_at"`
	}

	Report struct {
		ID         int64     `db:"id"`
		MessageID  int64     `db:"message_id"`
		ReporterID int64     `db:"reporter_id"`
		Reason     string    `db:"reason"`
		CreatedAt  Timestamp `db:"created_at"`
	}

	// SenderReport is a report joined with the reported message text.
	SenderReport struct {
		Report
		MessageText string `db:"message_text"`
	}

	Idea struct {
		ID        int64     `db:"id"`
		FromUser  int64     `db:"from_user"`
		Text      string    `db:"text"`
		CreatedAt Timestamp `db:"created_at"`
	}

	Appeal struct {
		ID        int64     `db:"id"`
		UserID    int64     `db:"user_id"`
		Text      string    `db:"text"`
		Processed bool      `db:"processed"`
		CreatedAt Timestamp `db:"created_at"`
	}

	// Block is absent for users that are not blocked.
	Block struct {
		UserID      int64     `db:"user_id"`
		Reason      string    `db:"reason"`
		BlockedAt   Timestamp `db:"blocked_at"`
		Permanently bool      `db:"permanently"`
	}

	Stats struct {
		MessagesToday int `db:"messages_today"`
		MessagesTotal int `db:"messages_total"`
		VisitsToday   int `db:"visits_today"`
		VisitsTotal   int `db:"visits_total"`
		UniqueSenders int `db:"unique_senders"`
	}

	// Timestamp is stored as unix seconds so range queries compare integers.
	Timestamp struct {
		time.Time
	}
)

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

func Now() Timestamp {
	return NewTimestamp(time.Now())
}

func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return int64(0), nil
	}
	return t.Unix(), nil
}

func (t *Timestamp) Scan(v interface{}) error {
	switch data := v.(type) {
	case nil:
		t.Time = time.Time{}
	case int64:
		t.Time = time.Unix(data, 0).UTC()
	case float64:
		t.Time = time.Unix(int64(data), 0).UTC()
	case time.Time:
		t.Time = data.UTC()
	default:
		return fmt.Errorf("cannot scan type %T into Timestamp", v)
	}
	return nil
}

// StartOfDay returns midnight UTC of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Handle renders an optional username as @handle.
func Handle(username *string) string {
	if username == nil || *username == "" {
		return ""
	}
	return "@" + *username
}

func NormalizeLanguage(lang string) string {
	switch lang {
	case LanguageRU, LanguageEN:
		return lang
	}
	return DefaultLanguage
}
