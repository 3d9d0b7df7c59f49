package tinysync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"gorm.io/gorm"
)

// finishedSituacoes are the ERP states that close the call-center workflow.
var finishedSituacoes = map[string]bool{
	"faturado": true,
	"enviado":  true,
	"entregue": true,
}

func isFinishedSituacao(situacao string) bool {
	return finishedSituacoes[strings.ToLower(strings.TrimSpace(situacao))]
}

// ProcessWebhook applies one order-status notification from the ERP. Unknown
// order ids are ignored: the ERP also carries orders created directly by the
// clinic staff that never passed through this system. Redelivered
// notifications are harmless, the transition to FINALIZADO only happens once
// and never runs backwards.
func ProcessWebhook(ctx context.Context, db *gorm.DB, payload WebhookPayload) error {
	logger := config.GetLogger()
	if payload.PedidoId == 0 {
		return &SyncFailure{
			Entity:    "webhook",
			Code:      "missing_pedido_id",
			Message:   "webhook payload has no pedido_id",
			Retryable: false,
		}
	}

	var atendimento models.AtendimentoCallCenter
	err := db.WithContext(ctx).Where("tiny_pedido_id = ?", payload.PedidoId).Take(&atendimento).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warnf("webhook for unknown tiny pedido %d, ignoring", payload.PedidoId)
			return nil
		}
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"tiny_situacao": payload.Situacao,
		"tiny_sync_at":  &now,
	}
	if isFinishedSituacao(payload.Situacao) && atendimento.Status != models.AtendimentoStatusFinalizado {
		updates["status"] = models.AtendimentoStatusFinalizado
		logger.Infof("atendimento %d finalized by tiny pedido %d (%s)", atendimento.ID, payload.PedidoId, payload.Situacao)
	}
	return db.WithContext(ctx).Model(&atendimento).Updates(updates).Error
}
