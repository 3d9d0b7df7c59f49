package tinysync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"gorm.io/gorm"
)

const (
	maxAttempts        = 3
	syncTaskTimeout    = 120 * time.Second
	webhookTaskTimeout = 120 * time.Second
	exportTaskTimeout  = 600 * time.Second
)

type taskAction int

const (
	actionDone taskAction = iota
	actionRetry
	actionTerminal
)

// decideTaskAction is the single place that turns a task outcome into what
// the runner does next. Attempt counts start at 1.
func decideTaskAction(attempt int, err error) taskAction {
	if err == nil {
		return actionDone
	}
	if IsRetryable(err) && attempt < maxAttempts {
		return actionRetry
	}
	return actionTerminal
}

func recordTerminalFailure(ctx context.Context, db *gorm.DB, entityType string, entityId int, attempt int, payload interface{}, err error) {
	logger := config.GetLogger()
	rec := &models.TinySyncError{
		EntityType: entityType,
		EntityId:   entityId,
		Message:    err.Error(),
		Retryable:  IsRetryable(err),
		Attempt:    attempt,
	}
	var sf *SyncFailure
	if errors.As(err, &sf) {
		rec.ErrorCode = sf.Code
	}
	if payload != nil {
		rec.PayloadJSON, _ = json.Marshal(payload)
	}
	if dbErr := models.CreateTinySyncError(ctx, db, rec); dbErr != nil {
		config.LogError(logger, moduleName, "recordTerminalFailure", "Failed to persist sync error", rec, dbErr)
	}
}

// Publish indirection so the runners can be exercised without a live broker.
var (
	publishSyncTask    = PublishSyncTask
	publishWebhookTask = PublishWebhookTask
	publishExportTask  = PublishExportTask
)

func runSyncTask(ctx context.Context, db *gorm.DB, task SyncTask) {
	logger := config.GetLogger()

	cfg, err := LoadConfig(ctx, db)
	if err == nil {
		err = executeSyncTask(ctx, cfg, db, task)
	}

	switch decideTaskAction(task.Attempt, err) {
	case actionDone:
		return
	case actionRetry:
		config.LogError(logger, moduleName, "runSyncTask", "Sync attempt failed, requeueing", task, err)
		retry := task
		retry.Attempt++
		if pubErr := publishSyncTask(ctx, retry); pubErr != nil {
			config.LogError(logger, moduleName, "runSyncTask", "Failed to requeue sync task", task, pubErr)
			recordTerminalFailure(ctx, db, task.Kind, task.EntityId, task.Attempt, task, err)
		}
	case actionTerminal:
		config.LogError(logger, moduleName, "runSyncTask", "Sync task exhausted", task, err)
		recordTerminalFailure(ctx, db, task.Kind, task.EntityId, task.Attempt, task, err)
	}
}

func executeSyncTask(ctx context.Context, cfg Config, db *gorm.DB, task SyncTask) error {
	if !cfg.Enabled {
		config.GetLogger().Debugf("tiny integration disabled, dropping %s task %d", task.Kind, task.EntityId)
		return nil
	}
	client, err := NewClient(cfg.APIToken)
	if err != nil {
		return &SyncFailure{
			Entity:    task.Kind,
			EntityId:  task.EntityId,
			Code:      "missing_api_token",
			Message:   err.Error(),
			Retryable: false,
		}
	}

	switch task.Kind {
	case SyncKindPaciente:
		return SyncPaciente(ctx, cfg, db, client, task.EntityId)
	case SyncKindPedido:
		return SyncPedido(ctx, cfg, db, client, task.EntityId)
	case SyncKindProdutos:
		_, err := SyncProdutos(ctx, cfg, db, client)
		return err
	default:
		return &SyncFailure{
			Entity:    task.Kind,
			EntityId:  task.EntityId,
			Code:      "unknown_task_kind",
			Message:   "unknown sync task kind " + task.Kind,
			Retryable: false,
		}
	}
}

func runWebhookTask(ctx context.Context, db *gorm.DB, task WebhookTask) {
	logger := config.GetLogger()

	err := ProcessWebhook(ctx, db, task.WebhookPayload)

	switch decideTaskAction(task.Attempt, err) {
	case actionDone:
		return
	case actionRetry:
		config.LogError(logger, moduleName, "runWebhookTask", "Webhook attempt failed, requeueing", task, err)
		retry := task
		retry.Attempt++
		if pubErr := publishWebhookTask(ctx, retry); pubErr != nil {
			config.LogError(logger, moduleName, "runWebhookTask", "Failed to requeue webhook task", task, pubErr)
			recordTerminalFailure(ctx, db, "webhook", int(task.PedidoId), task.Attempt, task, err)
		}
	case actionTerminal:
		config.LogError(logger, moduleName, "runWebhookTask", "Webhook task exhausted", task, err)
		recordTerminalFailure(ctx, db, "webhook", int(task.PedidoId), task.Attempt, task, err)
	}
}

func runExportTask(ctx context.Context, db *gorm.DB, task ExportTask) {
	logger := config.GetLogger()

	err := RunExportJob(ctx, db, task.JobId)

	switch decideTaskAction(task.Attempt, err) {
	case actionDone:
		return
	case actionRetry:
		config.LogError(logger, moduleName, "runExportTask", "Export attempt failed, requeueing", task, err)
		retry := task
		retry.Attempt++
		if pubErr := publishExportTask(ctx, retry); pubErr != nil {
			config.LogError(logger, moduleName, "runExportTask", "Failed to requeue export task", task, pubErr)
			_ = models.MarkExportJobFailed(ctx, db, task.JobId, err.Error())
		}
	case actionTerminal:
		config.LogError(logger, moduleName, "runExportTask", "Export task exhausted", task, err)
		_ = models.MarkExportJobFailed(ctx, db, task.JobId, err.Error())
	}
}
