package tinysync

import (
	"context"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"gorm.io/gorm"
)

const moduleName = "tinysync"

// parseRemoteTime parses data_alteracao, which the ERP emits either as
// RFC3339 or as the local "dd/mm/yyyy hh:mm:ss" form depending on endpoint.
func parseRemoteTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("02/01/2006 15:04:05", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func contactFieldsFromPaciente(p *models.Paciente) ContactFields {
	fields := ContactFields{
		Nome:       p.Nome,
		TipoPessoa: "F",
		CpfCnpj:    utils.OnlyDigits(p.Cpf),
		Email:      p.Email,
		Fone:       utils.OnlyDigits(p.Telefone),
		Celular:    utils.OnlyDigits(p.Celular),
	}
	if p.Endereco != "" {
		fields.Endereco = p.Endereco
		fields.Numero = p.Numero
		fields.Complemento = p.Complemento
		fields.Bairro = p.Bairro
		fields.Cep = utils.OnlyDigits(p.Cep)
		fields.Cidade = p.Cidade
		fields.Uf = p.Uf
	}
	return fields
}

// SyncPaciente mirrors one patient into the ERP contact registry. Patients
// without a name or CPF are skipped silently: they are incomplete records the
// call center has not finished yet, not failures.
func SyncPaciente(ctx context.Context, cfg Config, db *gorm.DB, client ERPClient, pacienteID int) error {
	logger := config.GetLogger()
	if !cfg.Enabled {
		logger.Debugf("tiny integration disabled, skipping paciente %d", pacienteID)
		return nil
	}

	var paciente models.Paciente
	if err := db.WithContext(ctx).Where("id = ?", pacienteID).Take(&paciente).Error; err != nil {
		return err
	}
	if paciente.Nome == "" || utils.OnlyDigits(paciente.Cpf) == "" {
		logger.Warnf("paciente %d has no nome/cpf, skipping tiny sync", pacienteID)
		return nil
	}

	release, err := utils.EntityLock(ctx, SyncKindPaciente, pacienteID, moduleName, "SyncPaciente")
	if err != nil {
		return err
	}
	defer release()

	var remote Contact
	if paciente.TinyId == nil {
		resp := client.CreateContact(ctx, contactFieldsFromPaciente(&paciente))
		if !resp.OK() {
			return &SyncFailure{
				Entity:    SyncKindPaciente,
				EntityId:  pacienteID,
				Code:      "contact_create_failed",
				Message:   resp.Message,
				Retryable: true,
			}
		}
		remote = resp.Contato
	} else {
		resp := client.GetContact(ctx, *paciente.TinyId)
		if !resp.OK() {
			// The stored tiny_id may point at a contact deleted on the
			// remote side. Recreate instead of failing the task.
			logger.Warnf("paciente %d tiny contact %d not fetchable (%s), recreating", pacienteID, *paciente.TinyId, resp.Message)
			created := client.CreateContact(ctx, contactFieldsFromPaciente(&paciente))
			if !created.OK() {
				return &SyncFailure{
					Entity:    SyncKindPaciente,
					EntityId:  pacienteID,
					Code:      "contact_create_failed",
					Message:   created.Message,
					Retryable: true,
				}
			}
			remote = created.Contato
		} else {
			remote = resp.Contato

			// Newest wins, remote wins ties. Only push when the local record
			// changed strictly after the remote one.
			remoteChangedAt, hasRemoteTime := parseRemoteTime(remote.DataAlteracao)
			if !hasRemoteTime || paciente.UpdatedAt.After(remoteChangedAt) {
				updResp := client.UpdateContact(ctx, *paciente.TinyId, contactFieldsFromPaciente(&paciente))
				if !updResp.OK() {
					return &SyncFailure{
						Entity:    SyncKindPaciente,
						EntityId:  pacienteID,
						Code:      "contact_update_failed",
						Message:   updResp.Message,
						Retryable: true,
					}
				}
				if updResp.Contato.DataAlteracao != "" {
					remote = updResp.Contato
				}
			} else {
				logger.Debugf("paciente %d remote contact is newer, skipping update", pacienteID)
			}
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"tiny_id":      remote.ID,
		"tiny_sync_at": &now,
	}
	if changedAt, ok := parseRemoteTime(remote.DataAlteracao); ok {
		updates["tiny_updated_at"] = &changedAt
	}
	// Column-level update so the sync never bumps updated_at on the
	// business fields and re-triggers itself.
	if err := db.WithContext(ctx).Model(&models.Paciente{}).Where("id = ?", pacienteID).
		UpdateColumns(updates).Error; err != nil {
		return err
	}
	return nil
}
