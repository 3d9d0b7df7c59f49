package tinysync

import (
	"context"
	"testing"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Clinica{}, &models.Medico{}, &models.Paciente{},
		&models.Produto{},
		&models.Receita{}, &models.ReceitaItem{}, &models.AtendimentoCallCenter{},
		&models.Setting{},
		&models.TinySyncError{}, &models.ExportJob{},
	))
	return db
}

func enabledConfig() Config {
	return Config{Enabled: true, APIToken: "test-token"}
}

// fakeERP counts every call and delegates to the optional per-method func.
// Methods without a func return an empty success.
type fakeERP struct {
	listProductsFn  func(page, pageSize int) ListProductsResponse
	getContactFn    func(id int64) ContactResponse
	createContactFn func(fields ContactFields) ContactResponse
	updateContactFn func(id int64, fields ContactFields) ContactResponse
	createOrderFn   func(fields OrderFields) OrderResponse

	listCalls   int
	getCalls    int
	createCalls int
	updateCalls int
	orderCalls  int
}

func (f *fakeERP) ListProducts(_ context.Context, page int, pageSize int) ListProductsResponse {
	f.listCalls++
	if f.listProductsFn != nil {
		return f.listProductsFn(page, pageSize)
	}
	return ListProductsResponse{Result: successResult()}
}

func (f *fakeERP) GetContact(_ context.Context, id int64) ContactResponse {
	f.getCalls++
	if f.getContactFn != nil {
		return f.getContactFn(id)
	}
	return ContactResponse{Result: successResult(), Contato: Contact{ID: id}}
}

func (f *fakeERP) CreateContact(_ context.Context, fields ContactFields) ContactResponse {
	f.createCalls++
	if f.createContactFn != nil {
		return f.createContactFn(fields)
	}
	return ContactResponse{Result: successResult(), Contato: Contact{ID: 1000, Nome: fields.Nome}}
}

func (f *fakeERP) UpdateContact(_ context.Context, id int64, fields ContactFields) ContactResponse {
	f.updateCalls++
	if f.updateContactFn != nil {
		return f.updateContactFn(id, fields)
	}
	return ContactResponse{Result: successResult(), Contato: Contact{ID: id, Nome: fields.Nome}}
}

func (f *fakeERP) CreateOrder(_ context.Context, fields OrderFields) OrderResponse {
	f.orderCalls++
	if f.createOrderFn != nil {
		return f.createOrderFn(fields)
	}
	return OrderResponse{Result: successResult(), PedidoId: 5000}
}
