package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/whosent/internal/db"
)

func (c *sqliteClient) CreateReport(ctx context.Context, report *db.Report) (*db.Report, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if report.CreatedAt.IsZero() {
		report.CreatedAt = db.Now()
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO reports (message_id, reporter_id, reason, created_at) VALUES (?, ?, ?, ?)`,
		report.MessageID, report.ReporterID, report.Reason, report.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("create report", err)
	}
	if report.ID, err = res.LastInsertId(); err != nil {
		return nil, storageErr("create report", err)
	}
	return report, nil
}

// CountUniqueReporters counts distinct reporters across every message of the sender.
func (c *sqliteClient) CountUniqueReporters(ctx context.Context, senderID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT r.reporter_id)
		FROM reports r
		JOIN messages m ON r.message_id = m.id
		WHERE m.sender_id = ?
	`, senderID)
	if err != nil {
		return 0, storageErr("count unique reporters", err)
	}
	return count, nil
}

func (c *sqliteClient) ListReportsForSender(ctx context.Context, senderID int64) ([]*db.SenderReport, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var reports []*db.SenderReport
	err := c.db.SelectContext(ctx, &reports, `
		SELECT r.id, r.message_id, r.reporter_id, r.reason, r.created_at, m.text AS message_text
		FROM reports r
		JOIN messages m ON r.message_id = m.id
		WHERE m.sender_id = ?
		ORDER BY r.created_at DESC, r.id DESC
	`, senderID)
	if err != nil {
		return nil, storageErr("list reports for sender", err)
	}
	return reports, nil
}

func (c *sqliteClient) CreateIdea(ctx context.Context, idea *db.Idea) (*db.Idea, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = db.Now()
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO ideas (from_user, text, created_at) VALUES (?, ?, ?)`,
		idea.FromUser, idea.Text, idea.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("create idea", err)
	}
	if idea.ID, err = res.LastInsertId(); err != nil {
		return nil, storageErr("create idea", err)
	}
	return idea, nil
}

// UpsertBlock replaces any previous block record of the user.
func (c *sqliteClient) UpsertBlock(ctx context.Context, block *db.Block) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if block.BlockedAt.IsZero() {
		block.BlockedAt = db.Now()
	}
	err := tool.Err(c.db.ExecContext(ctx, `
		INSERT INTO blocked (user_id, reason, blocked_at, permanently)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			reason = excluded.reason,
			blocked_at = excluded.blocked_at,
			permanently = excluded.permanently
	`, block.UserID, block.Reason, block.BlockedAt, block.Permanently))
	if err != nil {
		return storageErr("upsert block", err)
	}
	return nil
}

func (c *sqliteClient) DeleteBlock(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := tool.Err(c.db.ExecContext(ctx, `DELETE FROM blocked WHERE user_id = ?`, userID)); err != nil {
		return storageErr("delete block", err)
	}
	return nil
}

func (c *sqliteClient) GetBlock(ctx context.Context, userID int64) (*db.Block, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	block := &db.Block{}
	err := c.db.GetContext(ctx, block, `SELECT user_id, reason, blocked_at, permanently FROM blocked WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get block", err)
	}
	return block, nil
}
