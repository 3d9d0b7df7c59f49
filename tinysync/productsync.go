package tinysync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/config"
	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productPageSize = 100

type ProdutoStats struct {
	Synced int
	Errors int
}

type productResolution int

const (
	resolvedById productResolution = iota
	resolvedByCode
	resolvedUnmatched
)

// resolveProduto finds the local row a remote product maps onto. Lookup by
// tiny_id wins over lookup by codigo; a product matched by codigo gets its
// tiny_id adopted on this pass.
func resolveProduto(ctx context.Context, db *gorm.DB, remote *RemoteProduto) (*models.Produto, productResolution, error) {
	var produto models.Produto
	err := db.WithContext(ctx).Where("tiny_id = ?", remote.ID).Take(&produto).Error
	if err == nil {
		return &produto, resolvedById, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, resolvedUnmatched, err
	}
	if remote.Codigo != "" {
		err = db.WithContext(ctx).Where("codigo = ?", remote.Codigo).Take(&produto).Error
		if err == nil {
			return &produto, resolvedByCode, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resolvedUnmatched, err
		}
	}
	return nil, resolvedUnmatched, nil
}

// produtoCode returns the local codigo for a remote product. Products the ERP
// carries without a code get a synthesized one so the unique index holds.
func produtoCode(remote *RemoteProduto) string {
	if code := strings.TrimSpace(remote.Codigo); code != "" {
		return code
	}
	return fmt.Sprintf("TINY-%d", remote.ID)
}

func upsertProduto(ctx context.Context, db *gorm.DB, remote *RemoteProduto) error {
	preco, err := decimal.NewFromString(remote.Preco.String())
	if err != nil {
		preco = decimal.Zero
	}
	ativo := strings.EqualFold(remote.Situacao, "A")
	now := time.Now()

	produto, _, err := resolveProduto(ctx, db, remote)
	if err != nil {
		return err
	}
	if produto == nil {
		novo := models.Produto{
			Codigo:     produtoCode(remote),
			Nome:       remote.Nome,
			Preco:      preco,
			Categoria:  remote.Categoria,
			Ativo:      &ativo,
			TinyId:     &remote.ID,
			TinySyncAt: &now,
		}
		return db.WithContext(ctx).Create(&novo).Error
	}
	return db.WithContext(ctx).Model(produto).Updates(map[string]interface{}{
		"nome":         remote.Nome,
		"preco":        preco,
		"categoria":    remote.Categoria,
		"ativo":        ativo,
		"tiny_id":      remote.ID,
		"tiny_sync_at": &now,
	}).Error
}

// SyncProdutos pulls the full product catalog, page by page, until the ERP
// returns a short page. Per-product failures are recorded and counted but do
// not stop the batch; the batch itself fails only when a whole page cannot be
// fetched.
func SyncProdutos(ctx context.Context, cfg Config, db *gorm.DB, client ERPClient) (ProdutoStats, error) {
	logger := config.GetLogger()
	stats := ProdutoStats{}
	if !cfg.Enabled {
		logger.Debug("tiny integration disabled, skipping produtos sync")
		return stats, nil
	}

	release, err := utils.EntityLock(ctx, SyncKindProdutos, 0, moduleName, "SyncProdutos")
	if err != nil {
		return stats, err
	}
	defer release()

	for page := 1; ; page++ {
		resp := client.ListProducts(ctx, page, productPageSize)
		if !resp.OK() {
			return stats, &SyncFailure{
				Entity:    SyncKindProdutos,
				EntityId:  page,
				Code:      "product_page_failed",
				Message:   resp.Message,
				Retryable: true,
			}
		}
		for i := range resp.Produtos {
			remote := &resp.Produtos[i]
			if err := upsertProduto(ctx, db, remote); err != nil {
				stats.Errors++
				config.LogError(logger, moduleName, "SyncProdutos", "Failed to upsert produto", remote.ID, err)
				_ = models.CreateTinySyncError(ctx, db, &models.TinySyncError{
					EntityType: "produto",
					ExternalId: fmt.Sprintf("%d", remote.ID),
					ErrorCode:  "product_upsert_failed",
					Message:    err.Error(),
					Retryable:  false,
					Attempt:    1,
				})
				continue
			}
			stats.Synced++
		}
		if len(resp.Produtos) < productPageSize {
			break
		}
	}

	if err := models.SetSetting(ctx, db, models.SettingTinyProdutosLastSync, time.Now().Format(time.RFC3339)); err != nil {
		return stats, err
	}
	logger.Infof("tiny produtos sync finished: %d synced, %d errors", stats.Synced, stats.Errors)
	return stats, nil
}
