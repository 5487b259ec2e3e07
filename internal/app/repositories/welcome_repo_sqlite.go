package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
)

type sqliteWelcomeRepo struct {
	db *sql.DB
}

func NewSQLiteWelcomeRepo(db *sql.DB) (WelcomeRepository, error) {
	repo := &sqliteWelcomeRepo{db: db}
	const createTable = `
        CREATE TABLE IF NOT EXISTS welcome_messages (
            group_id TEXT PRIMARY KEY,
            message TEXT NOT NULL,
            updated_at INTEGER NOT NULL
        )`
	if _, err := db.Exec(createTable); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *sqliteWelcomeRepo) Get(ctx context.Context, groupID string) (*welcome.Template, error) {
	var (
		tpl     welcome.Template
		updated int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT group_id, message, updated_at FROM welcome_messages WHERE group_id = ?`,
		strings.TrimSpace(groupID)).Scan(&tpl.GroupID, &tpl.Message, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWelcomeNotFound
	}
	if err != nil {
		return nil, err
	}
	tpl.UpdatedAt = time.UnixMilli(updated).UTC()
	return &tpl, nil
}

func (r *sqliteWelcomeRepo) Set(ctx context.Context, groupID, message string) (*welcome.Template, error) {
	now := time.Now().UTC()
	id := strings.TrimSpace(groupID)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO welcome_messages (group_id, message, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (group_id) DO UPDATE SET message = excluded.message, updated_at = excluded.updated_at`,
		id, message, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	return &welcome.Template{GroupID: id, Message: message, UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC()}, nil
}

func (r *sqliteWelcomeRepo) Delete(ctx context.Context, groupID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM welcome_messages WHERE group_id = ?`, strings.TrimSpace(groupID))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrWelcomeNotFound
	}
	return nil
}
