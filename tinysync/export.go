package tinysync

import (
	"context"
	"fmt"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/davsilveira/revskin-clinicaweb-sub002/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type receitaExportRow struct {
	ReceitaId    int       `gorm:"column:receita_id"`
	DataEmissao  time.Time `gorm:"column:data_emissao"`
	PacienteNome string    `gorm:"column:paciente_nome"`
	MedicoNome   string    `gorm:"column:medico_nome"`
	Status       *string   `gorm:"column:status"`
	TinyPedidoId *int64    `gorm:"column:tiny_pedido_id"`
}

func getReceitasExport(ctx context.Context, db *gorm.DB) ([]*receitaExportRow, error) {
	sql := `
SELECT
    receitas.id AS receita_id,
    receitas.data_emissao,
    receitas.tiny_pedido_id,
    pacientes.nome AS paciente_nome,
    medicos.nome AS medico_nome,
    atendimento_call_centers.status
FROM receitas
    LEFT JOIN pacientes ON pacientes.id = receitas.paciente_id
    LEFT JOIN medicos ON medicos.id = receitas.medico_id
    LEFT JOIN atendimento_call_centers ON atendimento_call_centers.receita_id = receitas.id
ORDER BY receitas.id;
`
	var rows []*receitaExportRow
	if err := db.WithContext(ctx).Raw(sql).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func buildReceitasWorkbook(ctx context.Context, db *gorm.DB) (*excelize.File, error) {
	rows, err := getReceitasExport(ctx, db)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Receita")
	f.SetCellValue("Sheet1", "B1", "DataEmissao")
	f.SetCellValue("Sheet1", "C1", "Paciente")
	f.SetCellValue("Sheet1", "D1", "Medico")
	f.SetCellValue("Sheet1", "E1", "Status")
	f.SetCellValue("Sheet1", "F1", "TinyPedido")

	// Add data
	for i, d := range rows {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), d.ReceitaId)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.DataEmissao.Format("2006-01-02"))
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.PacienteNome)
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), d.MedicoNome)
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), utils.DereferencePtr(d.Status, ""))
		f.SetCellValue("Sheet1", "F"+fmt.Sprint(i+2), utils.DereferencePtr(d.TinyPedidoId, 0))
	}
	return f, nil
}

func buildProdutosWorkbook(ctx context.Context, db *gorm.DB) (*excelize.File, error) {
	var produtos []models.Produto
	if err := db.WithContext(ctx).Order("codigo").Find(&produtos).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return nil, err
	}

	f.SetCellValue("Sheet1", "A1", "Codigo")
	f.SetCellValue("Sheet1", "B1", "Nome")
	f.SetCellValue("Sheet1", "C1", "Preco")
	f.SetCellValue("Sheet1", "D1", "Categoria")
	f.SetCellValue("Sheet1", "E1", "Ativo")
	f.SetCellValue("Sheet1", "F1", "TinyId")

	for i, d := range produtos {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), d.Codigo)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.Nome)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.Preco.String())
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), d.Categoria)
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), utils.DereferencePtr(d.Ativo, false))
		f.SetCellValue("Sheet1", "F"+fmt.Sprint(i+2), utils.DereferencePtr(d.TinyId, 0))
	}
	return f, nil
}

// RunExportJob renders one queued export to xlsx and uploads it. Rerunning a
// finished job is a no-op so a redelivered task never overwrites the file url.
func RunExportJob(ctx context.Context, db *gorm.DB, jobId int) error {
	var job models.ExportJob
	if err := db.WithContext(ctx).Where("id = ?", jobId).Take(&job).Error; err != nil {
		return err
	}
	if job.Status == models.ExportJobStatusDone {
		return nil
	}

	now := time.Now()
	if err := db.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
		"status":     models.ExportJobStatusRunning,
		"started_at": &now,
	}).Error; err != nil {
		return err
	}

	var (
		f   *excelize.File
		err error
	)
	switch job.Tipo {
	case models.ExportJobKindReceitas:
		f, err = buildReceitasWorkbook(ctx, db)
	case models.ExportJobKindProdutos:
		f, err = buildProdutosWorkbook(ctx, db)
	default:
		return &SyncFailure{
			Entity:    "export",
			EntityId:  jobId,
			Code:      "unknown_export_kind",
			Message:   "unknown export kind " + string(job.Tipo),
			Retryable: false,
		}
	}
	if err != nil {
		return err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("exports/%s-%d-%s.xlsx", job.Tipo, job.ID, time.Now().Format("20060102-150405"))
	fileUrl, err := utils.UploadToGCS(ctx, objectName, xlsxContentType, buf.Bytes())
	if err != nil {
		return err
	}

	finished := time.Now()
	return db.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
		"status":      models.ExportJobStatusDone,
		"file_url":    fileUrl,
		"finished_at": &finished,
	}).Error
}
