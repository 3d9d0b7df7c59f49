package tinysync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedReceita(t *testing.T, db *gorm.DB, pacienteTinyId *int64, produtoTinyId *int64) (models.Paciente, models.Produto, models.Receita, models.AtendimentoCallCenter) {
	t.Helper()
	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "52998224725", TinyId: pacienteTinyId}
	require.NoError(t, db.Create(&paciente).Error)

	medico := models.Medico{Nome: "Dr. Carlos", Crm: "12345"}
	require.NoError(t, db.Create(&medico).Error)

	produto := models.Produto{Codigo: "CREME-01", Nome: "Creme", TinyId: produtoTinyId}
	require.NoError(t, db.Create(&produto).Error)

	receita := models.Receita{
		PacienteId:  paciente.ID,
		MedicoId:    medico.ID,
		DataEmissao: time.Now(),
		Itens: []*models.ReceitaItem{
			{ProdutoId: produto.ID, Quantidade: decimal.NewFromInt(2), ValorUnitario: decimal.NewFromFloat(30)},
		},
	}
	require.NoError(t, db.Create(&receita).Error)

	atendimento := models.AtendimentoCallCenter{ReceitaId: receita.ID, Status: models.AtendimentoStatusEmAndamento}
	require.NoError(t, db.Create(&atendimento).Error)

	return paciente, produto, receita, atendimento
}

func TestSyncPedidoCreatesDraftOrderAndPersistsIds(t *testing.T) {
	db := setupTestDB(t)
	pacienteTinyId, produtoTinyId := int64(10), int64(20)
	_, _, receita, atendimento := seedReceita(t, db, &pacienteTinyId, &produtoTinyId)

	erp := &fakeERP{
		createOrderFn: func(fields OrderFields) OrderResponse {
			assert.Equal(t, pacienteTinyId, fields.ClienteId)
			assert.Equal(t, orderSituacaoDraft, fields.Situacao)
			require.Len(t, fields.Itens, 1)
			assert.Equal(t, produtoTinyId, fields.Itens[0].ProdutoId)
			return OrderResponse{Result: successResult(), PedidoId: 777}
		},
	}

	require.NoError(t, SyncPedido(context.Background(), enabledConfig(), db, erp, receita.ID))
	assert.Equal(t, 1, erp.orderCalls)

	var reloadedReceita models.Receita
	require.NoError(t, db.Take(&reloadedReceita, receita.ID).Error)
	require.NotNil(t, reloadedReceita.TinyPedidoId)
	assert.Equal(t, int64(777), *reloadedReceita.TinyPedidoId)

	var reloadedAtendimento models.AtendimentoCallCenter
	require.NoError(t, db.Take(&reloadedAtendimento, atendimento.ID).Error)
	require.NotNil(t, reloadedAtendimento.TinyPedidoId)
	assert.Equal(t, int64(777), *reloadedAtendimento.TinyPedidoId)
	assert.Equal(t, orderSituacaoDraft, reloadedAtendimento.TinySituacao)
}

func TestSyncPedidoSkipsAlreadySyncedPrescription(t *testing.T) {
	db := setupTestDB(t)
	pacienteTinyId, produtoTinyId := int64(10), int64(20)
	_, _, receita, _ := seedReceita(t, db, &pacienteTinyId, &produtoTinyId)

	existing := int64(555)
	require.NoError(t, db.Model(&models.Receita{}).Where("id = ?", receita.ID).
		Update("tiny_pedido_id", existing).Error)

	erp := &fakeERP{}
	require.NoError(t, SyncPedido(context.Background(), enabledConfig(), db, erp, receita.ID))
	assert.Zero(t, erp.orderCalls)

	var reloaded models.Receita
	require.NoError(t, db.Take(&reloaded, receita.ID).Error)
	assert.Equal(t, existing, *reloaded.TinyPedidoId)
}

func TestSyncPedidoFailsHardWhenNoItemIsSyncable(t *testing.T) {
	db := setupTestDB(t)
	pacienteTinyId := int64(10)
	_, _, receita, _ := seedReceita(t, db, &pacienteTinyId, nil) // produto without tiny_id

	erp := &fakeERP{}
	err := SyncPedido(context.Background(), enabledConfig(), db, erp, receita.ID)
	require.Error(t, err)
	assert.Zero(t, erp.orderCalls)

	var sf *SyncFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "no_syncable_items", sf.Code)
	assert.False(t, IsRetryable(err))
}

func TestSyncPedidoSyncsPatientInlineFirst(t *testing.T) {
	db := setupTestDB(t)
	produtoTinyId := int64(20)
	_, _, receita, _ := seedReceita(t, db, nil, &produtoTinyId) // paciente without tiny_id

	erp := &fakeERP{
		createContactFn: func(fields ContactFields) ContactResponse {
			return ContactResponse{Result: successResult(), Contato: Contact{ID: 33}}
		},
		createOrderFn: func(fields OrderFields) OrderResponse {
			assert.Equal(t, int64(33), fields.ClienteId)
			return OrderResponse{Result: successResult(), PedidoId: 778}
		},
	}

	require.NoError(t, SyncPedido(context.Background(), enabledConfig(), db, erp, receita.ID))
	assert.Equal(t, 1, erp.createCalls)
	assert.Equal(t, 1, erp.orderCalls)
}
