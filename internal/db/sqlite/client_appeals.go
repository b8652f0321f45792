package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/whosent/internal/db"
	errs "github.com/iamwavecut/whosent/internal/errors"
)

const appealColumns = `id, user_id, text, processed, created_at`

// FileAppeal flips the one-shot appeal flag of the user and stores the appeal in one transaction.
// It returns errs.ErrAlreadyAppealed when the flag was already set or the user is unknown.
func (c *sqliteClient) FileAppeal(ctx context.Context, appeal *db.Appeal) (*db.Appeal, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if appeal.CreatedAt.IsZero() {
		appeal.CreatedAt = db.Now()
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin file appeal", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users SET appealed = 1 WHERE user_id = ? AND appealed = 0`, appeal.UserID)
	if err != nil {
		return nil, storageErr("mark appealed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("mark appealed", err)
	}
	if affected == 0 {
		return nil, errs.ErrAlreadyAppealed
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO appeals (user_id, text, created_at, processed) VALUES (?, ?, ?, 0)`,
		appeal.UserID, appeal.Text, appeal.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("file appeal", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("file appeal", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit file appeal", err)
	}
	appeal.ID = id
	appeal.Processed = false
	return appeal, nil
}

func (c *sqliteClient) GetAppeal(ctx context.Context, id int64) (*db.Appeal, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	appeal := &db.Appeal{}
	err := c.db.GetContext(ctx, appeal, `SELECT `+appealColumns+` FROM appeals WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get appeal", err)
	}
	return appeal, nil
}

func (c *sqliteClient) ListUnprocessedAppeals(ctx context.Context) ([]*db.Appeal, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var appeals []*db.Appeal
	err := c.db.SelectContext(ctx, &appeals, `SELECT `+appealColumns+` FROM appeals WHERE processed = 0 ORDER BY id`)
	if err != nil {
		return nil, storageErr("list unprocessed appeals", err)
	}
	return appeals, nil
}

// MarkAppealProcessed reports whether the appeal existed and was still unprocessed.
func (c *sqliteClient) MarkAppealProcessed(ctx context.Context, id int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `UPDATE appeals SET processed = 1 WHERE id = ? AND processed = 0`, id)
	if err != nil {
		return false, storageErr("mark appeal processed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("mark appeal processed", err)
	}
	return affected > 0, nil
}
