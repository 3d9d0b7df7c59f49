package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Receita struct {
	ID          int       `gorm:"primary_key" json:"id"`
	PacienteId  int       `gorm:"index;not null" json:"paciente_id" binding:"required"`
	MedicoId    int       `gorm:"index;not null" json:"medico_id" binding:"required"`
	DataEmissao time.Time `json:"data_emissao"`
	Observacao  string    `gorm:"type:text" json:"observacao"`

	Itens []*ReceitaItem `json:"itens"`

	TinyPedidoId *int64 `gorm:"index" json:"tiny_pedido_id"`

	LegacyId  *int64    `gorm:"index" json:"legacy_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ReceitaItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ReceitaId     int             `gorm:"index;not null" json:"receita_id"`
	ProdutoId     int             `gorm:"index;not null" json:"produto_id"`
	Quantidade    decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"quantidade"`
	ValorUnitario decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"valor_unitario"`
	Posologia     string          `gorm:"type:text" json:"posologia"`
	LegacyId      *int64          `gorm:"index" json:"legacy_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// GetReceitaComItens loads a prescription with its items on the given
// connection. Sync jobs pass their own db handle, handlers pass the global one.
func GetReceitaComItens(ctx context.Context, db *gorm.DB, id int) (*Receita, error) {
	var receita Receita
	err := db.WithContext(ctx).Preload("Itens").Where("id = ?", id).Take(&receita).Error
	if err != nil {
		return nil, err
	}
	return &receita, nil
}
