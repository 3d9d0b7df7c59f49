package tinysync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"gorm.io/gorm"
)

// Config is the per-invocation snapshot of the integration settings. Jobs
// receive it explicitly instead of reading a process-wide store, so two
// overlapping tasks can never observe half-updated settings.
type Config struct {
	Enabled  bool
	APIToken string
}

func LoadConfig(ctx context.Context, db *gorm.DB) (Config, error) {
	enabled, err := models.GetSetting(ctx, db, models.SettingTinyEnabled)
	if err != nil {
		return Config{}, err
	}
	token, err := models.GetSetting(ctx, db, models.SettingTinyAPIToken)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Enabled:  parseBoolSetting(enabled),
		APIToken: strings.TrimSpace(token),
	}, nil
}

func parseBoolSetting(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// SyncFailure is raised when the ERP rejects a sync attempt. Retryable
// failures are requeued by the task runner up to the attempt limit;
// non-retryable ones go straight to the terminal hook.
type SyncFailure struct {
	Entity    string
	EntityId  int
	Code      string
	Message   string
	Retryable bool
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("tiny sync %s %d (%s): %s", e.Entity, e.EntityId, e.Code, e.Message)
}

// IsRetryable reports whether the task runner should requeue after err.
// Unknown errors (network, db) are treated as retryable.
func IsRetryable(err error) bool {
	var sf *SyncFailure
	if errors.As(err, &sf) {
		return sf.Retryable
	}
	return true
}

// WebhookPayload is the inbound notification from the ERP.
type WebhookPayload struct {
	PedidoId int64           `json:"pedido_id"`
	Situacao string          `json:"situacao"`
	Raw      json.RawMessage `json:"payload"`
}

// Task payloads carried over the queue lanes. Attempt starts at 1; the
// runner republishes with Attempt+1 on retryable failure.
type SyncTask struct {
	Kind          string `json:"kind"`
	EntityId      int    `json:"entity_id"`
	Attempt       int    `json:"attempt"`
	CorrelationId string `json:"correlation_id"`
}

const (
	SyncKindPaciente = "paciente"
	SyncKindPedido   = "pedido"
	SyncKindProdutos = "produtos"
)

type WebhookTask struct {
	WebhookPayload
	Attempt       int    `json:"attempt"`
	CorrelationId string `json:"correlation_id"`
}

type ExportTask struct {
	JobId         int    `json:"job_id"`
	Attempt       int    `json:"attempt"`
	CorrelationId string `json:"correlation_id"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// API request/response types for the integration endpoints.

type UpdateSettingsRequest struct {
	Enabled  *bool   `json:"enabled"`
	APIToken *string `json:"apiToken"`
}

type StatusResponse struct {
	Enabled                bool   `json:"enabled"`
	ProdutosLastSync       string `json:"produtosLastSync,omitempty"`
	PacientesSincronizados int64  `json:"pacientesSincronizados"`
	ProdutosSincronizados  int64  `json:"produtosSincronizados"`
	PedidosSincronizados   int64  `json:"pedidosSincronizados"`
}

type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type SyncErrorResponse struct {
	ID         int    `json:"id"`
	EntityType string `json:"entityType"`
	EntityId   int    `json:"entityId"`
	ExternalId string `json:"externalId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	Attempt    int    `json:"attempt"`
}

type NewExportRequest struct {
	Tipo string `json:"tipo" binding:"required"`
}
