package tinysync

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := config.GetDB()

		cfg, err := LoadConfig(ctx, db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		lastSync, err := models.GetSetting(ctx, db, models.SettingTinyProdutosLastSync)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := StatusResponse{Enabled: cfg.Enabled, ProdutosLastSync: lastSync}
		if err := db.WithContext(ctx).Model(&models.Paciente{}).Where("tiny_id IS NOT NULL").Count(&resp.PacientesSincronizados).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := db.WithContext(ctx).Model(&models.Produto{}).Where("tiny_id IS NOT NULL").Count(&resp.ProdutosSincronizados).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := db.WithContext(ctx).Model(&models.Receita{}).Where("tiny_pedido_id IS NOT NULL").Count(&resp.PedidosSincronizados).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func UpdateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.Enabled == nil && req.APIToken == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		ctx := c.Request.Context()
		db := config.GetDB()
		if req.Enabled != nil {
			if err := models.SetSetting(ctx, db, models.SettingTinyEnabled, strconv.FormatBool(*req.Enabled)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		if req.APIToken != nil {
			if err := models.SetSetting(ctx, db, models.SettingTinyAPIToken, strings.TrimSpace(*req.APIToken)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "settings updated"})
	}
}

// TestConnectionHandler probes the ERP with a one-product page. It never
// mutates anything, so it is safe to call with the integration disabled.
func TestConnectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cfg, err := LoadConfig(ctx, config.GetDB())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		client, err := NewClient(cfg.APIToken)
		if err != nil {
			c.JSON(http.StatusOK, TestConnectionResponse{Success: false, Message: "api token is not configured"})
			return
		}
		resp := client.ListProducts(ctx, 1, 1)
		if !resp.OK() {
			c.JSON(http.StatusOK, TestConnectionResponse{Success: false, Message: resp.Message})
			return
		}
		c.JSON(http.StatusOK, TestConnectionResponse{Success: true})
	}
}

func SyncPacienteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		enqueueSyncTask(c, SyncKindPaciente, c.Param("id"))
	}
}

func SyncPedidoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		enqueueSyncTask(c, SyncKindPedido, c.Param("receitaId"))
	}
}

func SyncProdutosHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		task := SyncTask{Kind: SyncKindProdutos}
		if err := PublishSyncTask(c.Request.Context(), task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "produtos sync queued"})
	}
}

func enqueueSyncTask(c *gin.Context, kind string, rawId string) {
	id, err := strconv.Atoi(rawId)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := PublishSyncTask(c.Request.Context(), SyncTask{Kind: kind, EntityId: id}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": kind + " sync queued"})
}

// CreatePacienteHandler registers a new patient and queues the ERP mirror in
// the background. A queue failure is logged but does not fail the request;
// the patient can be re-synced manually later.
func CreatePacienteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewPaciente
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := c.Request.Context()
		paciente, err := models.CreatePaciente(ctx, config.GetDB(), &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := PublishSyncTask(ctx, SyncTask{Kind: SyncKindPaciente, EntityId: paciente.ID}); err != nil {
			config.LogError(config.GetLogger(), moduleName, "CreatePacienteHandler", "Failed to queue paciente sync", paciente.ID, err)
		}
		c.JSON(http.StatusCreated, paciente)
	}
}

func GetPacienteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		paciente, err := models.GetPacienteById(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paciente not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, paciente)
	}
}

func SyncErrorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		errs, err := models.RecentTinySyncErrors(c.Request.Context(), config.GetDB(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp := make([]SyncErrorResponse, 0, len(errs))
		for _, e := range errs {
			resp = append(resp, SyncErrorResponse{
				ID:         e.ID,
				EntityType: e.EntityType,
				EntityId:   e.EntityId,
				ExternalId: e.ExternalId,
				Message:    e.Message,
				Retryable:  e.Retryable,
				Attempt:    e.Attempt,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// WebhookHandler accepts the inbound ERP notification and queues it. The
// ERP's delivery timeout is short, so the handler only validates shape and
// acks immediately.
func WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if payload.PedidoId == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pedido_id is required"})
			return
		}
		task := WebhookTask{WebhookPayload: payload}
		if err := PublishWebhookTask(c.Request.Context(), task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "webhook accepted"})
	}
}

func CreateExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NewExportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		kind := models.ExportJobKind(strings.ToLower(strings.TrimSpace(req.Tipo)))
		if kind != models.ExportJobKindReceitas && kind != models.ExportJobKindProdutos {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo must be receitas or produtos"})
			return
		}

		ctx := c.Request.Context()
		db := config.GetDB()
		username, _ := utils.GetUsernameFromContext(ctx)
		job := models.ExportJob{
			Tipo:        kind,
			Status:      models.ExportJobStatusQueued,
			RequestedBy: username,
		}
		if err := db.WithContext(ctx).Create(&job).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := PublishExportTask(ctx, ExportTask{JobId: job.ID}); err != nil {
			_ = models.MarkExportJobFailed(ctx, db, job.ID, "failed to enqueue: "+err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, job)
	}
}

func GetExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var job models.ExportJob
		if err := config.GetDB().WithContext(c.Request.Context()).Where("id = ?", id).Take(&job).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "export job not found"})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}
