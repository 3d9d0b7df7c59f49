package models

import (
	"log"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Clinica{}, &Medico{}, &Paciente{},
		&Produto{},
		&Receita{}, &ReceitaItem{}, &AtendimentoCallCenter{},
		&Setting{},
		&TinySyncError{}, &ExportJob{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
