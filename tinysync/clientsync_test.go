package tinysync

import (
	"context"
	"testing"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncPacienteSkipsIncompleteRecordWithoutNetworkCalls(t *testing.T) {
	db := setupTestDB(t)
	erp := &fakeERP{}

	paciente := models.Paciente{Nome: "Maria Souza"} // no CPF
	require.NoError(t, db.Create(&paciente).Error)

	err := SyncPaciente(context.Background(), enabledConfig(), db, erp, paciente.ID)
	require.NoError(t, err)

	assert.Zero(t, erp.createCalls)
	assert.Zero(t, erp.getCalls)
	assert.Zero(t, erp.updateCalls)

	var reloaded models.Paciente
	require.NoError(t, db.Take(&reloaded, paciente.ID).Error)
	assert.Nil(t, reloaded.TinyId)
}

func TestSyncPacienteDisabledIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	erp := &fakeERP{}

	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "529.982.247-25"}
	require.NoError(t, db.Create(&paciente).Error)

	err := SyncPaciente(context.Background(), Config{Enabled: false}, db, erp, paciente.ID)
	require.NoError(t, err)
	assert.Zero(t, erp.createCalls+erp.getCalls+erp.updateCalls)
}

func TestSyncPacienteCreatesContactAndStoresTinyId(t *testing.T) {
	db := setupTestDB(t)
	erp := &fakeERP{
		createContactFn: func(fields ContactFields) ContactResponse {
			assert.Equal(t, "52998224725", fields.CpfCnpj)
			return ContactResponse{Result: successResult(), Contato: Contact{ID: 321, DataAlteracao: "2026-01-10T12:00:00Z"}}
		},
	}

	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "529.982.247-25"}
	require.NoError(t, db.Create(&paciente).Error)

	require.NoError(t, SyncPaciente(context.Background(), enabledConfig(), db, erp, paciente.ID))
	assert.Equal(t, 1, erp.createCalls)

	var reloaded models.Paciente
	require.NoError(t, db.Take(&reloaded, paciente.ID).Error)
	require.NotNil(t, reloaded.TinyId)
	assert.Equal(t, int64(321), *reloaded.TinyId)
	assert.NotNil(t, reloaded.TinySyncAt)
	assert.NotNil(t, reloaded.TinyUpdatedAt)
}

func TestSyncPacienteSkipsUpdateWhenRemoteIsNewer(t *testing.T) {
	db := setupTestDB(t)

	tinyId := int64(77)
	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "52998224725", TinyId: &tinyId}
	require.NoError(t, db.Create(&paciente).Error)

	remoteChangedAt := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	erp := &fakeERP{
		getContactFn: func(id int64) ContactResponse {
			return ContactResponse{Result: successResult(), Contato: Contact{ID: id, DataAlteracao: remoteChangedAt}}
		},
	}

	require.NoError(t, SyncPaciente(context.Background(), enabledConfig(), db, erp, paciente.ID))
	assert.Equal(t, 1, erp.getCalls)
	assert.Zero(t, erp.updateCalls)
	assert.Zero(t, erp.createCalls)

	var reloaded models.Paciente
	require.NoError(t, db.Take(&reloaded, paciente.ID).Error)
	assert.NotNil(t, reloaded.TinySyncAt)
}

func TestSyncPacientePushesUpdateWhenLocalIsNewer(t *testing.T) {
	db := setupTestDB(t)

	tinyId := int64(77)
	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "52998224725", TinyId: &tinyId}
	require.NoError(t, db.Create(&paciente).Error)

	remoteChangedAt := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	erp := &fakeERP{
		getContactFn: func(id int64) ContactResponse {
			return ContactResponse{Result: successResult(), Contato: Contact{ID: id, DataAlteracao: remoteChangedAt}}
		},
	}

	require.NoError(t, SyncPaciente(context.Background(), enabledConfig(), db, erp, paciente.ID))
	assert.Equal(t, 1, erp.updateCalls)
}

func TestSyncPacienteRecreatesWhenRemoteContactIsGone(t *testing.T) {
	db := setupTestDB(t)

	tinyId := int64(77)
	paciente := models.Paciente{Nome: "Maria Souza", Cpf: "52998224725", TinyId: &tinyId}
	require.NoError(t, db.Create(&paciente).Error)

	erp := &fakeERP{
		getContactFn: func(id int64) ContactResponse {
			return ContactResponse{Result: errorResult("contato nao encontrado")}
		},
		createContactFn: func(fields ContactFields) ContactResponse {
			return ContactResponse{Result: successResult(), Contato: Contact{ID: 900}}
		},
	}

	require.NoError(t, SyncPaciente(context.Background(), enabledConfig(), db, erp, paciente.ID))
	assert.Equal(t, 1, erp.createCalls)

	var reloaded models.Paciente
	require.NoError(t, db.Take(&reloaded, paciente.ID).Error)
	require.NotNil(t, reloaded.TinyId)
	assert.Equal(t, int64(900), *reloaded.TinyId)
}

func TestParseRemoteTimeFormats(t *testing.T) {
	if _, ok := parseRemoteTime("2026-02-01T10:30:00Z"); !ok {
		t.Fatalf("expected RFC3339 to parse")
	}
	if _, ok := parseRemoteTime("01/02/2026 10:30:00"); !ok {
		t.Fatalf("expected dd/mm/yyyy to parse")
	}
	if _, ok := parseRemoteTime(""); ok {
		t.Fatalf("expected empty string to not parse")
	}
}
