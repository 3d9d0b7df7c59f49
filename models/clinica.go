package models

import (
	"time"
)

type Clinica struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Nome      string    `gorm:"size:150;not null" json:"nome" binding:"required"`
	Cnpj      string    `gorm:"size:20" json:"cnpj"`
	Endereco  string    `gorm:"size:255" json:"endereco"`
	Cidade    string    `gorm:"size:100" json:"cidade"`
	Uf        string    `gorm:"size:2" json:"uf"`
	Telefone  string    `gorm:"size:20" json:"telefone"`
	Ativo     *bool     `gorm:"not null;default:true" json:"ativo"`
	LegacyId  *int64    `gorm:"index" json:"legacy_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
