package models

import (
	"context"
	"errors"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"gorm.io/gorm"
)

type Paciente struct {
	ID             int        `gorm:"primary_key" json:"id"`
	Nome           string     `gorm:"size:150;not null" json:"nome" binding:"required"`
	Cpf            string     `gorm:"size:20;index" json:"cpf"`
	Email          string     `gorm:"size:100" json:"email"`
	Telefone       string     `gorm:"size:20" json:"telefone"`
	Celular        string     `gorm:"size:20" json:"celular"`
	DataNascimento *time.Time `json:"data_nascimento"`
	Endereco       string     `gorm:"size:255" json:"endereco"`
	Numero         string     `gorm:"size:20" json:"numero"`
	Complemento    string     `gorm:"size:100" json:"complemento"`
	Bairro         string     `gorm:"size:100" json:"bairro"`
	Cidade         string     `gorm:"size:100" json:"cidade"`
	Uf             string     `gorm:"size:2" json:"uf"`
	Cep            string     `gorm:"size:10" json:"cep"`

	// Tiny ERP mirror fields. Sync jobs own these three columns and never
	// touch the business fields above.
	TinyId        *int64     `gorm:"index" json:"tiny_id"`
	TinySyncAt    *time.Time `json:"tiny_sync_at"`
	TinyUpdatedAt *time.Time `json:"tiny_updated_at"`

	LegacyId  *int64    `gorm:"index" json:"legacy_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaciente struct {
	Nome           string     `json:"nome" binding:"required"`
	Cpf            string     `json:"cpf"`
	Email          string     `json:"email"`
	Telefone       string     `json:"telefone"`
	Celular        string     `json:"celular"`
	DataNascimento *time.Time `json:"data_nascimento"`
	Endereco       string     `json:"endereco"`
	Numero         string     `json:"numero"`
	Complemento    string     `json:"complemento"`
	Bairro         string     `json:"bairro"`
	Cidade         string     `json:"cidade"`
	Uf             string     `json:"uf"`
	Cep            string     `json:"cep"`
}

func (input *NewPaciente) validate() error {
	if input.Telefone != "" {
		if err := utils.ValidatePhoneNumber(input.Telefone, utils.CountryCode); err != nil {
			return errors.New("telefone is not valid")
		}
	}
	if input.Celular != "" {
		if err := utils.ValidatePhoneNumber(input.Celular, utils.CountryCode); err != nil {
			return errors.New("celular is not valid")
		}
	}
	return nil
}

// CreatePaciente validates the input and persists a new patient record on the
// given connection. Phone numbers are validated as Brazilian numbers.
func CreatePaciente(ctx context.Context, db *gorm.DB, input *NewPaciente) (*Paciente, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	paciente := Paciente{
		Nome:           input.Nome,
		Cpf:            input.Cpf,
		Email:          input.Email,
		Telefone:       input.Telefone,
		Celular:        input.Celular,
		DataNascimento: input.DataNascimento,
		Endereco:       input.Endereco,
		Numero:         input.Numero,
		Complemento:    input.Complemento,
		Bairro:         input.Bairro,
		Cidade:         input.Cidade,
		Uf:             input.Uf,
		Cep:            input.Cep,
	}
	if err := db.WithContext(ctx).Create(&paciente).Error; err != nil {
		return nil, err
	}
	return &paciente, nil
}

func GetPacienteById(ctx context.Context, id int) (*Paciente, error) {
	return takeById[Paciente](ctx, id)
}
