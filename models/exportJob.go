package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ExportJob struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Tipo        ExportJobKind   `gorm:"size:20;not null" json:"tipo"`
	Status      ExportJobStatus `gorm:"size:20;not null;default:'QUEUED'" json:"status"`
	FileUrl     string          `gorm:"size:500" json:"file_url"`
	Error       string          `gorm:"type:text" json:"error"`
	RequestedBy string          `gorm:"size:100" json:"requested_by"`
	StartedAt   *time.Time      `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func MarkExportJobFailed(ctx context.Context, db *gorm.DB, jobId int, message string) error {
	now := time.Now()
	return db.WithContext(ctx).Model(&ExportJob{}).Where("id = ?", jobId).Updates(map[string]interface{}{
		"status":      ExportJobStatusFailed,
		"error":       message,
		"finished_at": &now,
	}).Error
}
