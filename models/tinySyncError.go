package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TinySyncError is the terminal-failure record for sync and webhook tasks.
// One row per exhausted task (or per hard failure inside a batch).
type TinySyncError struct {
	ID          int       `gorm:"primary_key" json:"id"`
	EntityType  string    `gorm:"size:50;index" json:"entity_type"`
	EntityId    int       `gorm:"index" json:"entity_id"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	Attempt     int       `gorm:"default:0" json:"attempt"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateTinySyncError(ctx context.Context, db *gorm.DB, rec *TinySyncError) error {
	return db.WithContext(ctx).Create(rec).Error
}

func RecentTinySyncErrors(ctx context.Context, db *gorm.DB, limit int) ([]TinySyncError, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var errs []TinySyncError
	if err := db.WithContext(ctx).Order("id desc").Limit(limit).Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}
