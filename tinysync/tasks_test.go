package tinysync

import (
	"context"
	"errors"
	"testing"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestDecideTaskAction(t *testing.T) {
	retryable := &SyncFailure{Entity: "paciente", Code: "contact_create_failed", Retryable: true}
	hard := &SyncFailure{Entity: "pedido", Code: "no_syncable_items", Retryable: false}
	unknown := errors.New("dial tcp: connection refused")

	cases := []struct {
		name    string
		attempt int
		err     error
		want    taskAction
	}{
		{"success first attempt", 1, nil, actionDone},
		{"success last attempt", maxAttempts, nil, actionDone},
		{"retryable below limit", 1, retryable, actionRetry},
		{"retryable at limit", maxAttempts, retryable, actionTerminal},
		{"hard failure first attempt", 1, hard, actionTerminal},
		{"unknown error is retried", 2, unknown, actionRetry},
		{"unknown error at limit", maxAttempts, unknown, actionTerminal},
	}

	for _, tc := range cases {
		got := decideTaskAction(tc.attempt, tc.err)
		if got != tc.want {
			t.Fatalf("%s: decideTaskAction(%d, %v) = %d, want %d", tc.name, tc.attempt, tc.err, got, tc.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(errors.New("boom")) {
		t.Fatalf("plain errors must be retryable")
	}
	if IsRetryable(&SyncFailure{Retryable: false}) {
		t.Fatalf("non-retryable failure reported as retryable")
	}
	wrapped := &SyncFailure{Retryable: true}
	if !IsRetryable(wrapped) {
		t.Fatalf("retryable failure reported as non-retryable")
	}
}

func TestRunWebhookTaskLogsAndRequeuesFailedAttempt(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.AtendimentoCallCenter{}))

	hook := logtest.NewLocal(config.GetLogger())
	defer hook.Reset()

	var requeued []WebhookTask
	orig := publishWebhookTask
	publishWebhookTask = func(_ context.Context, task WebhookTask) error {
		requeued = append(requeued, task)
		return nil
	}
	defer func() { publishWebhookTask = orig }()

	runWebhookTask(context.Background(), db, WebhookTask{
		WebhookPayload: WebhookPayload{PedidoId: 42, Situacao: "faturado"},
		Attempt:        1,
	})

	if len(requeued) != 1 {
		t.Fatalf("expected one requeued task, got %d", len(requeued))
	}
	if requeued[0].Attempt != 2 {
		t.Fatalf("requeued attempt = %d, want 2", requeued[0].Attempt)
	}
	logged := false
	for _, e := range hook.AllEntries() {
		if e.Data["context"] == "Webhook attempt failed, requeueing" {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("failed attempt was not logged before requeueing")
	}
}

func TestRunSyncTaskRecordsTerminalFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, models.SetSetting(ctx, db, models.SettingTinyEnabled, "true"))
	require.NoError(t, models.SetSetting(ctx, db, models.SettingTinyAPIToken, "tok"))

	runSyncTask(ctx, db, SyncTask{Kind: "estoque", EntityId: 7, Attempt: 1})

	var recs []models.TinySyncError
	require.NoError(t, db.Find(&recs).Error)
	if len(recs) != 1 {
		t.Fatalf("expected one sync error record, got %d", len(recs))
	}
	if recs[0].ErrorCode != "unknown_task_kind" {
		t.Fatalf("error code = %q, want unknown_task_kind", recs[0].ErrorCode)
	}
	if recs[0].EntityId != 7 {
		t.Fatalf("entity id = %d, want 7", recs[0].EntityId)
	}
}

func TestEntityLockLeaseCoversTaskBudget(t *testing.T) {
	if utils.EntityLockTTL < syncTaskTimeout {
		t.Fatalf("lock lease %s is shorter than the sync task budget %s", utils.EntityLockTTL, syncTaskTimeout)
	}
	if utils.EntityLockTTL < webhookTaskTimeout {
		t.Fatalf("lock lease %s is shorter than the webhook task budget %s", utils.EntityLockTTL, webhookTaskTimeout)
	}
}
