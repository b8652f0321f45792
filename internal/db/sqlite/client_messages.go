package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/whosent/internal/db"
)

func (c *sqliteClient) CreateVisit(ctx context.Context, visitorID, targetID int64) (*db.Visit, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	visit := &db.Visit{
		VisitorID: visitorID,
		TargetID:  targetID,
		CreatedAt: db.Now(),
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO visits (visitor_id, target_id, created_at) VALUES (?, ?, ?)`,
		visit.VisitorID, visit.TargetID, visit.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("create visit", err)
	}
	if visit.ID, err = res.LastInsertId(); err != nil {
		return nil, storageErr("create visit", err)
	}
	return visit, nil
}

// CreateMessage stores the message and bumps the receiver counter in one transaction.
func (c *sqliteClient) CreateMessage(ctx context.Context, msg *db.Message) (*db.Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = db.Now()
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin create message", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (sender_id, sender_username, sender_first_name, receiver_id, text, revealed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, msg.SenderID, msg.SenderUsername, msg.SenderFirstName, msg.ReceiverID, msg.Text, msg.CreatedAt)
	if err != nil {
		return nil, storageErr("create message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("create message", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET messages_received = messages_received + 1 WHERE user_id = ?`,
		msg.ReceiverID,
	); err != nil {
		return nil, storageErr("increment messages received", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit create message", err)
	}
	msg.ID = id
	msg.Revealed = false
	return msg, nil
}

func (c *sqliteClient) GetMessage(ctx context.Context, id int64) (*db.Message, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	msg := &db.Message{}
	err := c.db.GetContext(ctx, msg, `
		SELECT id, sender_id, sender_username, sender_first_name, receiver_id, text, revealed, created_at
		FROM messages
		WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get message", err)
	}
	return msg, nil
}

// MarkRevealed reports whether the flag flipped; an already revealed message returns false.
func (c *sqliteClient) MarkRevealed(ctx context.Context, id int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `UPDATE messages SET revealed = 1 WHERE id = ? AND revealed = 0`, id)
	if err != nil {
		return false, storageErr("mark revealed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("mark revealed", err)
	}
	return affected > 0, nil
}

func (c *sqliteClient) GetStats(ctx context.Context, userID int64, since time.Time) (*db.Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	sinceUnix := since.Unix()
	stats := &db.Stats{}
	err := c.db.GetContext(ctx, stats, `
		SELECT
			(SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND created_at >= ?) AS messages_today,
			(SELECT COUNT(*) FROM messages WHERE receiver_id = ?) AS messages_total,
			(SELECT COUNT(*) FROM visits WHERE target_id = ? AND created_at >= ?) AS visits_today,
			(SELECT COUNT(*) FROM visits WHERE target_id = ?) AS visits_total,
			(SELECT COUNT(DISTINCT sender_id) FROM messages WHERE receiver_id = ?) AS unique_senders
	`, userID, sinceUnix, userID, userID, sinceUnix, userID, userID)
	if err != nil {
		return nil, storageErr("get stats", err)
	}
	return stats, nil
}
