package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type blacklistRecord struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_blacklist_user_group"`
	GroupID   string    `gorm:"column:group_id;type:text;not null;default:'';uniqueIndex:idx_blacklist_user_group;index:idx_blacklist_group"`
	Reason    string    `gorm:"column:reason;type:text;not null;default:''"`
	AddedBy   string    `gorm:"column:added_by;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (blacklistRecord) TableName() string { return "blacklist" }

func (r blacklistRecord) toEntry() *blacklist.Entry {
	return &blacklist.Entry{
		UserID:    r.UserID,
		GroupID:   r.GroupID,
		Reason:    r.Reason,
		AddedBy:   r.AddedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type gormBlacklistRepo struct {
	db *gorm.DB
}

// NewGormBlacklistRepo builds a blacklist repository on PostgreSQL through GORM.
func NewGormBlacklistRepo(db *gorm.DB) (BlacklistRepository, error) {
	if err := db.AutoMigrate(&blacklistRecord{}); err != nil {
		return nil, err
	}
	return &gormBlacklistRepo{db: db}, nil
}

func (r *gormBlacklistRepo) IsBlacklisted(ctx context.Context, userID, groupID string) (bool, error) {
	key := normalizeScope(userID, groupID)
	var n int64
	err := r.db.WithContext(ctx).
		Model(&blacklistRecord{}).
		Where("user_id = ? AND (group_id = '' OR group_id = ?)", key.userID, key.groupID).
		Count(&n).Error
	if err != nil {
		return false, mapGormError(err)
	}
	return n > 0, nil
}

func (r *gormBlacklistRepo) Get(ctx context.Context, userID, groupID string) (*blacklist.Entry, error) {
	key := normalizeScope(userID, groupID)
	var rec blacklistRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", key.userID, key.groupID).
		First(&rec).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return rec.toEntry(), nil
}

func (r *gormBlacklistRepo) Upsert(ctx context.Context, entry blacklist.Entry) (*blacklist.Entry, error) {
	key := normalizeScope(entry.UserID, entry.GroupID)
	now := time.Now().UTC()
	rec := blacklistRecord{
		UserID:    key.userID,
		GroupID:   key.groupID,
		Reason:    entry.Reason,
		AddedBy:   entry.AddedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "added_by", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return r.Get(ctx, key.userID, key.groupID)
}

func (r *gormBlacklistRepo) Remove(ctx context.Context, userID, groupID string) error {
	key := normalizeScope(userID, groupID)
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", key.userID, key.groupID).
		Delete(&blacklistRecord{})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBlacklistNotFound
	}
	return nil
}

func (r *gormBlacklistRepo) List(ctx context.Context, opts blacklist.ListOptions) ([]blacklist.Entry, error) {
	limit, offset := pageBounds(opts.Limit, opts.Offset)
	groupID := strings.TrimSpace(opts.GroupID)

	q := r.db.WithContext(ctx).Model(&blacklistRecord{})
	switch {
	case groupID != "":
		q = q.Where("group_id = ?", groupID)
	case opts.Global:
		q = q.Where("group_id = ''")
	}
	var recs []blacklistRecord
	if err := q.Order("created_at DESC, user_id, group_id").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, mapGormError(err)
	}
	out := make([]blacklist.Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toEntry())
	}
	return out, nil
}

// mapGormError traduz erros do driver lib/pq para os sentinels do repositório.
func mapGormError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBlacklistNotFound
	}
	if errors.Is(err, driver.ErrBadConn) {
		return ErrStoreUnavailable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return ErrBlacklistConflict
		case pqErr.Code.Class() == "08":
			return ErrStoreUnavailable
		}
	}
	return err
}
