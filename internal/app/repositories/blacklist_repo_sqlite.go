package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
)

type sqliteBlacklistRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteBlacklistRepo builds a blacklist repository on an embedded SQLite database.
func NewSQLiteBlacklistRepo(db *sql.DB) (BlacklistRepository, error) {
	repo := &sqliteBlacklistRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *sqliteBlacklistRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS blacklist (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL,
            group_id TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            added_by TEXT NOT NULL DEFAULT '',
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL,
            UNIQUE (user_id, group_id)
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_blacklist_group ON blacklist (group_id)`); err != nil {
		return err
	}
	return nil
}

func (r *sqliteBlacklistRepo) IsBlacklisted(ctx context.Context, userID, groupID string) (bool, error) {
	key := normalizeScope(userID, groupID)
	var n int
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(1) FROM blacklist
        WHERE user_id = ? AND (group_id = '' OR group_id = ?)`, key.userID, key.groupID).Scan(&n)
	if err != nil {
		return false, r.mapError(err)
	}
	return n > 0, nil
}

func (r *sqliteBlacklistRepo) Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	key := normalizeScope(userID, groupID)
	row := r.db.QueryRowContext(ctx, `
        SELECT user_id, group_id, reason, added_by, created_at, updated_at
        FROM blacklist WHERE user_id = ? AND group_id = ?`, key.userID, key.groupID)
	entry, err := scanSQLiteEntry(row)
	if err != nil {
		return nil, r.mapError(err)
	}
	return entry, nil
}

func (r *sqliteBlacklistRepo) Upsert(ctx context.Context, entry blacklist.Entry) (*blacklist.Entry, error) {
	key := normalizeScope(entry.UserID, entry.GroupID)
	now := r.now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO blacklist (user_id, group_id, reason, added_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, group_id)
        DO UPDATE SET reason = excluded.reason,
                      added_by = excluded.added_by,
                      updated_at = excluded.updated_at`,
		key.userID, key.groupID, entry.Reason, entry.AddedBy, now, now)
	if err != nil {
		return nil, r.mapError(err)
	}
	return r.Get(ctx, key.userID, key.groupID)
}

func (r *sqliteBlacklistRepo) Remove(ctx context.Context, userID, groupID string) error {
	key := normalizeScope(userID, groupID)
	res, err := r.db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ? AND group_id = ?`, key.userID, key.groupID)
	if err != nil {
		return r.mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBlacklistNotFound
	}
	return nil
}

func (r *sqliteBlacklistRepo) List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error) {
	limit, offset := pageBounds(opts.Limit, opts.Offset)
	groupID := strings.TrimSpace(opts.GroupID)

	query := `SELECT user_id, group_id, reason, added_by, created_at, updated_at FROM blacklist`
	var args []any
	switch {
	case groupID != "":
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	case opts.Global:
		query += ` WHERE group_id = ''`
	}
	query += ` ORDER BY created_at DESC, user_id, group_id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapError(err)
	}
	defer rows.Close()

	out := []blacklist.Entry{}
	for rows.Next() {
		entry, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (*blacklist.Entry, error) {
	var (
		entry            blacklist.Entry
		created, updated int64
	)
	if err := row.Scan(&entry.UserID, &entry.GroupID, &entry.Reason, &entry.AddedBy, &created, &updated); err != nil {
		return nil, err
	}
	entry.CreatedAt = time.UnixMilli(created).UTC()
	entry.UpdatedAt = time.UnixMilli(updated).UTC()
	return &entry, nil
}

func (r *sqliteBlacklistRepo) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBlacklistNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrBlacklistConflict
	}
	return err
}
