// Package notifytest provides a recording notify.Notifier for tests.
package notifytest

import (
	"context"
	"strings"
	"sync"

	"github.com/iamwavecut/whosent/internal/notify"
)

type Notification struct {
	UserID int64
	Text   string
	Rows   []notify.Row
}

// HasAction reports whether any button carries the given callback data.
func (n Notification) HasAction(data string) bool {
	for _, row := range n.Rows {
		for _, a := range row {
			if a.Data == data {
				return true
			}
		}
	}
	return false
}

type Alert struct {
	CallbackID string
	Text       string
}

type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	alerts        []Alert
}

func (r *Recorder) Notify(_ context.Context, userID int64, text string, rows ...notify.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{UserID: userID, Text: text, Rows: rows})
}

func (r *Recorder) Alert(_ context.Context, callbackID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, Alert{CallbackID: callbackID, Text: text})
}

// To returns notifications sent to the user, oldest first.
func (r *Recorder) To(userID int64) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Last returns the latest notification sent to the user.
func (r *Recorder) Last(userID int64) (Notification, bool) {
	sent := r.To(userID)
	if len(sent) == 0 {
		return Notification{}, false
	}
	return sent[len(sent)-1], true
}

// Containing returns notifications to the user whose text contains substr.
func (r *Recorder) Containing(userID int64, substr string) []Notification {
	var out []Notification
	for _, n := range r.To(userID) {
		if strings.Contains(n.Text, substr) {
			out = append(out, n)
		}
	}
	return out
}

func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
	r.alerts = nil
}

// KeyTranslator returns keys untouched so tests can match on English texts.
type KeyTranslator struct{}

func (KeyTranslator) Get(key, _ string) string {
	return key
}
