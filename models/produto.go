package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Produto struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Codigo    string          `gorm:"size:60;uniqueIndex;not null" json:"codigo" binding:"required"`
	Nome      string          `gorm:"size:200;not null" json:"nome" binding:"required"`
	Preco     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"preco"`
	Categoria string          `gorm:"size:100" json:"categoria"`
	Ativo     *bool           `gorm:"not null;default:true" json:"ativo"`

	TinyId     *int64     `gorm:"index" json:"tiny_id"`
	TinySyncAt *time.Time `json:"tiny_sync_at"`

	LegacyId  *int64    `gorm:"index" json:"legacy_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
