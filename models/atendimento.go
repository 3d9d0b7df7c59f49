package models

import (
	"time"
)

// AtendimentoCallCenter wraps a prescription in the call-center workflow.
// FINALIZADO is terminal: once reached, webhook updates never move it back.
type AtendimentoCallCenter struct {
	ID          int               `gorm:"primary_key" json:"id"`
	ReceitaId   int               `gorm:"index;not null" json:"receita_id"`
	Status      AtendimentoStatus `gorm:"size:30;not null;default:'NOVO'" json:"status"`
	Responsavel string            `gorm:"size:100" json:"responsavel"`

	TinyPedidoId *int64     `gorm:"index" json:"tiny_pedido_id"`
	TinySituacao string     `gorm:"size:60" json:"tiny_situacao"`
	TinySyncAt   *time.Time `json:"tiny_sync_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
