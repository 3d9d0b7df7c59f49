package tinysync

import (
	"context"
	"testing"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAtendimento(t *testing.T, db *gorm.DB, pedidoId int64, status models.AtendimentoStatus) models.AtendimentoCallCenter {
	t.Helper()
	atendimento := models.AtendimentoCallCenter{ReceitaId: 1, Status: status, TinyPedidoId: &pedidoId}
	require.NoError(t, db.Create(&atendimento).Error)
	return atendimento
}

func TestProcessWebhookFinalizesOnFinishedStatus(t *testing.T) {
	for _, situacao := range []string{"faturado", "Faturado", "ENVIADO", "entregue"} {
		t.Run(situacao, func(t *testing.T) {
			db := setupTestDB(t)
			atendimento := seedAtendimento(t, db, 42, models.AtendimentoStatusEmAndamento)

			err := ProcessWebhook(context.Background(), db, WebhookPayload{PedidoId: 42, Situacao: situacao})
			require.NoError(t, err)

			var reloaded models.AtendimentoCallCenter
			require.NoError(t, db.Take(&reloaded, atendimento.ID).Error)
			assert.Equal(t, models.AtendimentoStatusFinalizado, reloaded.Status)
			assert.Equal(t, situacao, reloaded.TinySituacao)
			assert.NotNil(t, reloaded.TinySyncAt)
		})
	}
}

func TestProcessWebhookIsIdempotentOnRedelivery(t *testing.T) {
	db := setupTestDB(t)
	atendimento := seedAtendimento(t, db, 42, models.AtendimentoStatusEmAndamento)

	for i := 0; i < 2; i++ {
		require.NoError(t, ProcessWebhook(context.Background(), db, WebhookPayload{PedidoId: 42, Situacao: "faturado"}))
	}

	var reloaded models.AtendimentoCallCenter
	require.NoError(t, db.Take(&reloaded, atendimento.ID).Error)
	assert.Equal(t, models.AtendimentoStatusFinalizado, reloaded.Status)
}

func TestProcessWebhookOnlyMirrorsUnfinishedStatus(t *testing.T) {
	db := setupTestDB(t)
	atendimento := seedAtendimento(t, db, 42, models.AtendimentoStatusEmAndamento)

	require.NoError(t, ProcessWebhook(context.Background(), db, WebhookPayload{PedidoId: 42, Situacao: "em separacao"}))

	var reloaded models.AtendimentoCallCenter
	require.NoError(t, db.Take(&reloaded, atendimento.ID).Error)
	assert.Equal(t, models.AtendimentoStatusEmAndamento, reloaded.Status)
	assert.Equal(t, "em separacao", reloaded.TinySituacao)
}

func TestProcessWebhookNeverMovesFinalizadoBack(t *testing.T) {
	db := setupTestDB(t)
	atendimento := seedAtendimento(t, db, 42, models.AtendimentoStatusFinalizado)

	require.NoError(t, ProcessWebhook(context.Background(), db, WebhookPayload{PedidoId: 42, Situacao: "em separacao"}))

	var reloaded models.AtendimentoCallCenter
	require.NoError(t, db.Take(&reloaded, atendimento.ID).Error)
	assert.Equal(t, models.AtendimentoStatusFinalizado, reloaded.Status)
}

func TestProcessWebhookIgnoresUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, ProcessWebhook(context.Background(), db, WebhookPayload{PedidoId: 999, Situacao: "faturado"}))
}

func TestProcessWebhookRejectsMissingPedidoId(t *testing.T) {
	db := setupTestDB(t)
	err := ProcessWebhook(context.Background(), db, WebhookPayload{Situacao: "faturado"})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
