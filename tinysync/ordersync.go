package tinysync

import (
	"context"
	"fmt"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"gorm.io/gorm"
)

// orderSituacaoDraft is the state new orders are created in. The call center
// finishes them inside the ERP; the webhook brings the final state back.
const orderSituacaoDraft = "aberto"

// SyncPedido creates a draft order in the ERP for one prescription. The call
// is idempotent: a prescription that already carries a tiny_pedido_id is left
// alone, no duplicate order is ever created.
func SyncPedido(ctx context.Context, cfg Config, db *gorm.DB, client ERPClient, receitaID int) error {
	logger := config.GetLogger()
	if !cfg.Enabled {
		logger.Debugf("tiny integration disabled, skipping pedido for receita %d", receitaID)
		return nil
	}

	receita, err := models.GetReceitaComItens(ctx, db, receitaID)
	if err != nil {
		return err
	}
	if receita.TinyPedidoId != nil {
		logger.Infof("receita %d already has tiny pedido %d, skipping", receitaID, *receita.TinyPedidoId)
		return nil
	}

	release, err := utils.EntityLock(ctx, SyncKindPedido, receitaID, moduleName, "SyncPedido")
	if err != nil {
		return err
	}
	defer release()

	// The contact must exist in the ERP before the order can reference it.
	var paciente models.Paciente
	if err := db.WithContext(ctx).Where("id = ?", receita.PacienteId).Take(&paciente).Error; err != nil {
		return err
	}
	if paciente.TinyId == nil {
		if err := SyncPaciente(ctx, cfg, db, client, paciente.ID); err != nil {
			return err
		}
		if err := db.WithContext(ctx).Where("id = ?", receita.PacienteId).Take(&paciente).Error; err != nil {
			return err
		}
		if paciente.TinyId == nil {
			return &SyncFailure{
				Entity:    SyncKindPedido,
				EntityId:  receitaID,
				Code:      "paciente_not_syncable",
				Message:   fmt.Sprintf("paciente %d could not be mirrored to tiny", paciente.ID),
				Retryable: false,
			}
		}
	}

	items := make([]OrderItemFields, 0, len(receita.Itens))
	for _, item := range receita.Itens {
		produto, err := takeProduto(ctx, db, item.ProdutoId)
		if err != nil {
			return err
		}
		if produto.TinyId == nil {
			logger.Warnf("receita %d item produto %d has no tiny_id, item skipped", receitaID, produto.ID)
			continue
		}
		items = append(items, OrderItemFields{
			ProdutoId:     *produto.TinyId,
			Descricao:     produto.Nome,
			Quantidade:    item.Quantidade.String(),
			ValorUnitario: item.ValorUnitario.String(),
		})
	}
	if len(items) == 0 {
		return &SyncFailure{
			Entity:    SyncKindPedido,
			EntityId:  receitaID,
			Code:      "no_syncable_items",
			Message:   "every item references a product unknown to tiny",
			Retryable: false,
		}
	}

	resp := client.CreateOrder(ctx, OrderFields{
		ClienteId:  *paciente.TinyId,
		Situacao:   orderSituacaoDraft,
		Observacao: receita.Observacao,
		Itens:      items,
	})
	if !resp.OK() {
		return &SyncFailure{
			Entity:    SyncKindPedido,
			EntityId:  receitaID,
			Code:      "order_create_failed",
			Message:   resp.Message,
			Retryable: true,
		}
	}

	now := time.Now()
	if err := db.WithContext(ctx).Model(&models.Receita{}).Where("id = ?", receitaID).
		UpdateColumn("tiny_pedido_id", resp.PedidoId).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Model(&models.AtendimentoCallCenter{}).Where("receita_id = ?", receitaID).
		Updates(map[string]interface{}{
			"tiny_pedido_id": resp.PedidoId,
			"tiny_situacao":  orderSituacaoDraft,
			"tiny_sync_at":   &now,
		}).Error; err != nil {
		return err
	}
	logger.Infof("receita %d mirrored as tiny pedido %d", receitaID, resp.PedidoId)
	return nil
}

func takeProduto(ctx context.Context, db *gorm.DB, id int) (*models.Produto, error) {
	var produto models.Produto
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&produto).Error; err != nil {
		return nil, err
	}
	return &produto, nil
}
