package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type welcomeRecord struct {
	GroupID   string    `gorm:"column:group_id;type:text;primaryKey"`
	Message   string    `gorm:"column:message;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (welcomeRecord) TableName() string { return "welcome_messages" }

type gormWelcomeRepo struct {
	db *gorm.DB
}

func NewGormWelcomeRepo(db *gorm.DB) (WelcomeRepository, error) {
	if err := db.AutoMigrate(&welcomeRecord{}); err != nil {
		return nil, err
	}
	return &gormWelcomeRepo{db: db}, nil
}

func (r *gormWelcomeRepo) Get(ctx context.Context, groupID string) (*welcome.Template, error) {
	var rec welcomeRecord
	err := r.db.WithContext(ctx).Where("group_id = ?", strings.TrimSpace(groupID)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWelcomeNotFound
	}
	if err != nil {
		return nil, mapGormError(err)
	}
	return &welcome.Template{GroupID: rec.GroupID, Message: rec.Message, UpdatedAt: rec.UpdatedAt.UTC()}, nil
}

func (r *gormWelcomeRepo) Set(ctx context.Context, groupID, message string) (*welcome.Template, error) {
	rec := welcomeRecord{GroupID: strings.TrimSpace(groupID), Message: message, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &welcome.Template{GroupID: rec.GroupID, Message: rec.Message, UpdatedAt: rec.UpdatedAt}, nil
}

func (r *gormWelcomeRepo) Delete(ctx context.Context, groupID string) error {
	res := r.db.WithContext(ctx).Where("group_id = ?", strings.TrimSpace(groupID)).Delete(&welcomeRecord{})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWelcomeNotFound
	}
	return nil
}
