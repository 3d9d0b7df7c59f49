package tinysync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Topic lanes. Sync tasks, webhook deliveries and export jobs fail and retry
// independently, so each gets its own topic and push subscription.
func syncTopicName() string    { return topicFromEnv("TINY_SYNC_TOPIC", "tiny-sync") }
func webhookTopicName() string { return topicFromEnv("TINY_WEBHOOK_TOPIC", "tiny-webhook") }
func exportTopicName() string  { return topicFromEnv("EXPORTS_TOPIC", "exports") }

func topicFromEnv(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Push endpoint paths, matching the routes in cmd/tiny-sync-service.
const (
	syncPushPath    = "/pubsub/tiny-sync"
	webhookPushPath = "/pubsub/tiny-webhook"
	exportPushPath  = "/pubsub/exports"
)

func publish(ctx context.Context, topicName string, pushPath string, payload interface{}) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("TINY_SYNC_CREATE_TOPICS", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
		// Dev/emulator bootstrap: point the push subscription back at this
		// service. Production subscriptions are provisioned out of band.
		if base := strings.TrimSpace(os.Getenv("PUBSUB_PUSH_BASE_URL")); base != "" {
			endpoint := strings.TrimRight(base, "/") + pushPath
			if _, err := config.CreateSubscriptionIfNotExists(client, topicName+"-push", topic, endpoint); err != nil {
				return err
			}
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

func PublishSyncTask(ctx context.Context, task SyncTask) error {
	if task.Attempt == 0 {
		task.Attempt = 1
	}
	if task.CorrelationId == "" {
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			task.CorrelationId = cid
		}
	}
	if task.CorrelationId == "" {
		task.CorrelationId = uuid.NewString()
	}
	return publish(ctx, syncTopicName(), syncPushPath, task)
}

func PublishWebhookTask(ctx context.Context, task WebhookTask) error {
	if task.Attempt == 0 {
		task.Attempt = 1
	}
	if task.CorrelationId == "" {
		task.CorrelationId = uuid.NewString()
	}
	return publish(ctx, webhookTopicName(), webhookPushPath, task)
}

func PublishExportTask(ctx context.Context, task ExportTask) error {
	if task.Attempt == 0 {
		task.Attempt = 1
	}
	if task.CorrelationId == "" {
		task.CorrelationId = uuid.NewString()
	}
	return publish(ctx, exportTopicName(), exportPushPath, task)
}

// Push handlers. Pub/Sub redelivers on any non-2xx status, but retries are
// managed through the attempt counter in the payload instead, so every
// handler acks with 204 no matter what happened inside.

func SyncPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var task SyncTask
		if !decodePushEnvelope(c, &task) || task.Kind == "" {
			c.Status(204)
			return
		}
		ctx, cancel := taskContext(c, task.CorrelationId, syncTaskTimeout)
		defer cancel()
		runSyncTask(ctx, config.GetDB(), task)
		c.Status(204)
	}
}

func WebhookPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var task WebhookTask
		if !decodePushEnvelope(c, &task) {
			c.Status(204)
			return
		}
		ctx, cancel := taskContext(c, task.CorrelationId, webhookTaskTimeout)
		defer cancel()
		runWebhookTask(ctx, config.GetDB(), task)
		c.Status(204)
	}
}

func ExportPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var task ExportTask
		if !decodePushEnvelope(c, &task) || task.JobId == 0 {
			c.Status(204)
			return
		}
		ctx, cancel := taskContext(c, task.CorrelationId, exportTaskTimeout)
		defer cancel()
		runExportTask(ctx, config.GetDB(), task)
		c.Status(204)
	}
}

func decodePushEnvelope(c *gin.Context, out interface{}) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return false
	}
	var envelope PubSubPushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return json.Unmarshal(envelope.Message.Data, out) == nil
}

// taskContext detaches the task from the request lifetime. A closed push
// connection must not cancel a half-finished sync.
func taskContext(c *gin.Context, correlationId string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	if correlationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	}
	return context.WithTimeout(ctx, timeout)
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
