package models

import (
	"context"
	"errors"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"gorm.io/gorm"
)

type Setting struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Chave     string    `gorm:"size:100;uniqueIndex;not null" json:"chave"`
	Valor     string    `gorm:"type:text" json:"valor"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const settingCacheTTL = 30 * time.Second

// GetSetting reads one key on the given connection, consulting the redis
// cache first. Missing keys come back as empty string, not an error.
func GetSetting(ctx context.Context, db *gorm.DB, chave string) (string, error) {
	cacheKey := "Setting:" + chave
	if val, exists, err := config.GetRedisValue(cacheKey); err == nil && exists {
		return val, nil
	}

	var setting Setting
	err := db.WithContext(ctx).Where("chave = ?", chave).Take(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	_ = config.SetRedisValue(cacheKey, setting.Valor, settingCacheTTL)
	return setting.Valor, nil
}

// SetSetting upserts a key and invalidates its cache entry.
func SetSetting(ctx context.Context, db *gorm.DB, chave string, valor string) error {
	var setting Setting
	err := db.WithContext(ctx).Where("chave = ?", chave).Take(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		setting = Setting{Chave: chave, Valor: valor}
		if err := db.WithContext(ctx).Create(&setting).Error; err != nil {
			return err
		}
	} else {
		if err := db.WithContext(ctx).Model(&setting).Update("valor", valor).Error; err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Setting:" + chave)
}
