package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPacienteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Paciente{}))
	return db
}

func TestCreatePacientePersistsValidRecord(t *testing.T) {
	db := setupPacienteDB(t)

	paciente, err := CreatePaciente(context.Background(), db, &NewPaciente{
		Nome:     "Maria Souza",
		Cpf:      "529.982.247-25",
		Telefone: "4130001000",
		Celular:  "41998887777",
		Cidade:   "Curitiba",
		Uf:       "PR",
	})
	require.NoError(t, err)
	require.NotZero(t, paciente.ID)

	var reloaded Paciente
	require.NoError(t, db.Where("id = ?", paciente.ID).Take(&reloaded).Error)
	assert.Equal(t, "Maria Souza", reloaded.Nome)
	assert.Equal(t, "41998887777", reloaded.Celular)
	assert.Nil(t, reloaded.TinyId)
}

func TestCreatePacienteRejectsInvalidPhone(t *testing.T) {
	db := setupPacienteDB(t)

	cases := []struct {
		name  string
		input NewPaciente
	}{
		{"short telefone", NewPaciente{Nome: "Ana", Telefone: "123"}},
		{"short celular", NewPaciente{Nome: "Ana", Celular: "9"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreatePaciente(context.Background(), db, &tc.input)
			require.Error(t, err)

			var count int64
			require.NoError(t, db.Model(&Paciente{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestCreatePacienteAllowsEmptyPhones(t *testing.T) {
	db := setupPacienteDB(t)

	paciente, err := CreatePaciente(context.Background(), db, &NewPaciente{Nome: "Ana Lima"})
	require.NoError(t, err)
	assert.NotZero(t, paciente.ID)
}
