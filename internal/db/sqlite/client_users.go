package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/whosent/internal/db"
)

const userColumns = `user_id, username, first_name, language, messages_received, appealed, created_at`

func (c *sqliteClient) EnsureUser(ctx context.Context, userID int64, username *string, firstName string) (*db.User, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (user_id, username, first_name, language, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, username, firstName, db.DefaultLanguage, db.Now())
	if err != nil {
		return nil, false, storageErr("insert user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, storageErr("insert user", err)
	}
	created := affected > 0
	if !created {
		err := tool.Err(c.db.ExecContext(ctx,
			`UPDATE users SET username = ?, first_name = ? WHERE user_id = ?`,
			username, firstName, userID,
		))
		if err != nil {
			return nil, false, storageErr("refresh user", err)
		}
	}

	user := &db.User{}
	if err := c.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID); err != nil {
		return nil, false, storageErr("get user", err)
	}
	return user, created, nil
}

func (c *sqliteClient) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	user := &db.User{}
	err := c.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get user", err)
	}
	return user, nil
}

func (c *sqliteClient) SetLanguage(ctx context.Context, userID int64, lang string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := tool.Err(c.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE user_id = ?`, db.NormalizeLanguage(lang), userID))
	if err != nil {
		return storageErr("set language", err)
	}
	return nil
}

func (c *sqliteClient) GetLanguage(ctx context.Context, userID int64) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var lang string
	err := c.db.GetContext(ctx, &lang, `SELECT language FROM users WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.DefaultLanguage, nil
		}
		return db.DefaultLanguage, storageErr("get language", err)
	}
	return db.NormalizeLanguage(lang), nil
}
