package models

import (
	"context"
	"errors"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"gorm.io/gorm"
)

// takeById fetches a single record by primary key on the global connection.
func takeById[T any](ctx context.Context, id int) (*T, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	var record T
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
