package models

import (
	"time"
)

type Medico struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Nome      string    `gorm:"size:150;not null" json:"nome" binding:"required"`
	Crm       string    `gorm:"size:20;not null" json:"crm" binding:"required"`
	UfCrm     string    `gorm:"size:2" json:"uf_crm"`
	Email     string    `gorm:"size:100" json:"email"`
	Telefone  string    `gorm:"size:20" json:"telefone"`
	ClinicaId *int      `gorm:"index" json:"clinica_id"`
	Ativo     *bool     `gorm:"not null;default:true" json:"ativo"`
	LegacyId  *int64    `gorm:"index" json:"legacy_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
