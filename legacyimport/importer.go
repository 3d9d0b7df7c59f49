package legacyimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davsilveira/revskin-clinicaweb-sub002/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Entity names accepted by the --only flag, in dependency order. Receitas
// come last: they reference pacientes, medicos and produtos.
var EntityOrder = []string{"clinicas", "produtos", "medicos", "pacientes", "receitas"}

type Options struct {
	// Only restricts the run to a subset of EntityOrder. Nil or empty
	// means everything.
	Only   map[string]bool
	DryRun bool
}

type Counts struct {
	Imported         int
	Errors           int
	SkippedUnmatched int
}

type Summary map[string]*Counts

// importer carries the two connections plus the in-run identity maps. The
// maps let a dry run resolve references to rows it would have created,
// keeping dry-run counters identical to a real run.
type importer struct {
	legacy *gorm.DB
	target *gorm.DB
	logger *logrus.Logger
	opts   Options

	clinicaIds      map[int64]int
	medicoIds       map[int64]int
	pacienteIds     map[int64]int
	produtoByCodigo map[string]int
}

const progressEvery = 500

func Run(ctx context.Context, legacy *gorm.DB, target *gorm.DB, logger *logrus.Logger, opts Options) (Summary, error) {
	imp := &importer{
		legacy:          legacy,
		target:          target,
		logger:          logger,
		opts:            opts,
		clinicaIds:      map[int64]int{},
		medicoIds:       map[int64]int{},
		pacienteIds:     map[int64]int{},
		produtoByCodigo: map[string]int{},
	}

	summary := Summary{}
	for _, entity := range EntityOrder {
		if !imp.included(entity) {
			continue
		}
		counts := &Counts{}
		summary[entity] = counts
		logger.Infof("importing %s", entity)

		var err error
		switch entity {
		case "clinicas":
			err = imp.importClinicas(ctx, counts)
		case "produtos":
			err = imp.importProdutos(ctx, counts)
		case "medicos":
			err = imp.importMedicos(ctx, counts)
		case "pacientes":
			err = imp.importPacientes(ctx, counts)
		case "receitas":
			err = imp.importReceitas(ctx, counts)
		}
		if err != nil {
			return summary, fmt.Errorf("import %s: %w", entity, err)
		}
		logger.Infof("%s done: %d imported, %d errors, %d skipped", entity, counts.Imported, counts.Errors, counts.SkippedUnmatched)
	}
	return summary, nil
}

func (imp *importer) included(entity string) bool {
	if len(imp.opts.Only) == 0 {
		return true
	}
	return imp.opts.Only[entity]
}

// importRow isolates one row: a panic or returned error is counted and
// logged with the legacy id, and the batch moves on.
func (imp *importer) importRow(entity string, legacyId int64, counts *Counts, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			counts.Errors++
			imp.logger.Errorf("%s legacy id %d: panic: %v", entity, legacyId, r)
		}
	}()
	if err := fn(); err != nil {
		counts.Errors++
		imp.logger.Errorf("%s legacy id %d: %v", entity, legacyId, err)
		return
	}
	counts.Imported++
}

func (imp *importer) progress(entity string, n int) {
	if n > 0 && n%progressEvery == 0 {
		imp.logger.Infof("%s: %d rows processed", entity, n)
	}
}

// Legacy row shapes. The legacy schema predates this system; column names
// are mapped explicitly instead of trusting any naming convention.

type legacyClinica struct {
	ID       int64  `gorm:"column:id"`
	Nome     string `gorm:"column:nome"`
	Cnpj     string `gorm:"column:cnpj"`
	Endereco string `gorm:"column:endereco"`
	Cidade   string `gorm:"column:cidade"`
	Uf       string `gorm:"column:uf"`
	Telefone string `gorm:"column:telefone"`
	Ativo    bool   `gorm:"column:ativo"`
}

type legacyProduto struct {
	ID        int64   `gorm:"column:id"`
	Codigo    string  `gorm:"column:codigo"`
	Nome      string  `gorm:"column:nome"`
	Preco     float64 `gorm:"column:preco"`
	Categoria string  `gorm:"column:categoria"`
	Ativo     bool    `gorm:"column:ativo"`
}

type legacyMedico struct {
	ID        int64  `gorm:"column:id"`
	Nome      string `gorm:"column:nome"`
	Crm       string `gorm:"column:crm"`
	UfCrm     string `gorm:"column:uf_crm"`
	Email     string `gorm:"column:email"`
	Telefone  string `gorm:"column:telefone"`
	ClinicaId *int64 `gorm:"column:clinica_id"`
	Ativo     bool   `gorm:"column:ativo"`
}

type legacyPaciente struct {
	ID             int64      `gorm:"column:id"`
	Nome           string     `gorm:"column:nome"`
	Cpf            string     `gorm:"column:cpf"`
	Email          string     `gorm:"column:email"`
	Telefone       string     `gorm:"column:telefone"`
	Celular        string     `gorm:"column:celular"`
	DataNascimento *time.Time `gorm:"column:data_nascimento"`
	Endereco       string     `gorm:"column:endereco"`
	Numero         string     `gorm:"column:numero"`
	Complemento    string     `gorm:"column:complemento"`
	Bairro         string     `gorm:"column:bairro"`
	Cidade         string     `gorm:"column:cidade"`
	Uf             string     `gorm:"column:uf"`
	Cep            string     `gorm:"column:cep"`
}

type legacyReceita struct {
	ID          int64      `gorm:"column:id"`
	PacienteId  int64      `gorm:"column:paciente_id"`
	MedicoId    int64      `gorm:"column:medico_id"`
	DataEmissao *time.Time `gorm:"column:data_emissao"`
	Observacao  string     `gorm:"column:observacao"`
}

type legacyReceitaItem struct {
	ID            int64   `gorm:"column:id"`
	ReceitaId     int64   `gorm:"column:receita_id"`
	CodigoProduto string  `gorm:"column:codigo_produto"`
	Quantidade    float64 `gorm:"column:quantidade"`
	ValorUnitario float64 `gorm:"column:valor_unitario"`
	Posologia     string  `gorm:"column:posologia"`
}

func (imp *importer) importClinicas(ctx context.Context, counts *Counts) error {
	var rows []legacyClinica
	if err := imp.legacy.WithContext(ctx).Table("clinicas").Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		imp.importRow("clinicas", row.ID, counts, func() error {
			existing, err := findByLegacyId[models.Clinica](ctx, imp.target, row.ID)
			if err != nil {
				return err
			}
			ativo := row.Ativo
			record := models.Clinica{
				Nome:     row.Nome,
				Cnpj:     row.Cnpj,
				Endereco: row.Endereco,
				Cidade:   row.Cidade,
				Uf:       row.Uf,
				Telefone: row.Telefone,
				Ativo:    &ativo,
				LegacyId: &row.ID,
			}
			id, err := upsert(ctx, imp, existing, &record, func(e *models.Clinica) int { return e.ID })
			if err != nil {
				return err
			}
			imp.clinicaIds[row.ID] = id
			return nil
		})
		imp.progress("clinicas", i+1)
	}
	return nil
}

func (imp *importer) importProdutos(ctx context.Context, counts *Counts) error {
	var rows []legacyProduto
	if err := imp.legacy.WithContext(ctx).Table("produtos").Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		imp.importRow("produtos", row.ID, counts, func() error {
			if strings.TrimSpace(row.Codigo) == "" {
				return errors.New("produto has empty codigo")
			}
			existing, err := findByLegacyId[models.Produto](ctx, imp.target, row.ID)
			if err != nil {
				return err
			}
			ativo := row.Ativo
			record := models.Produto{
				Codigo:    strings.TrimSpace(row.Codigo),
				Nome:      row.Nome,
				Preco:     decimalFromFloat(row.Preco),
				Categoria: row.Categoria,
				Ativo:     &ativo,
				LegacyId:  &row.ID,
			}
			id, err := upsert(ctx, imp, existing, &record, func(e *models.Produto) int { return e.ID })
			if err != nil {
				return err
			}
			imp.produtoByCodigo[record.Codigo] = id
			return nil
		})
		imp.progress("produtos", i+1)
	}
	return nil
}

func (imp *importer) importMedicos(ctx context.Context, counts *Counts) error {
	var rows []legacyMedico
	if err := imp.legacy.WithContext(ctx).Table("medicos").Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		imp.importRow("medicos", row.ID, counts, func() error {
			existing, err := findByLegacyId[models.Medico](ctx, imp.target, row.ID)
			if err != nil {
				return err
			}
			ativo := row.Ativo
			record := models.Medico{
				Nome:     row.Nome,
				Crm:      row.Crm,
				UfCrm:    row.UfCrm,
				Email:    row.Email,
				Telefone: row.Telefone,
				Ativo:    &ativo,
				LegacyId: &row.ID,
			}
			if row.ClinicaId != nil {
				if clinicaId, ok := imp.resolveClinica(ctx, *row.ClinicaId); ok {
					record.ClinicaId = &clinicaId
				} else {
					imp.logger.Warnf("medico legacy id %d references unknown clinica %d", row.ID, *row.ClinicaId)
				}
			}
			id, err := upsert(ctx, imp, existing, &record, func(e *models.Medico) int { return e.ID })
			if err != nil {
				return err
			}
			imp.medicoIds[row.ID] = id
			return nil
		})
		imp.progress("medicos", i+1)
	}
	return nil
}

func (imp *importer) importPacientes(ctx context.Context, counts *Counts) error {
	var rows []legacyPaciente
	if err := imp.legacy.WithContext(ctx).Table("pacientes").Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		imp.importRow("pacientes", row.ID, counts, func() error {
			existing, err := findByLegacyId[models.Paciente](ctx, imp.target, row.ID)
			if err != nil {
				return err
			}
			record := models.Paciente{
				Nome:           row.Nome,
				Cpf:            row.Cpf,
				Email:          row.Email,
				Telefone:       row.Telefone,
				Celular:        row.Celular,
				DataNascimento: row.DataNascimento,
				Endereco:       row.Endereco,
				Numero:         row.Numero,
				Complemento:    row.Complemento,
				Bairro:         row.Bairro,
				Cidade:         row.Cidade,
				Uf:             row.Uf,
				Cep:            row.Cep,
				LegacyId:       &row.ID,
			}
			id, err := upsert(ctx, imp, existing, &record, func(e *models.Paciente) int { return e.ID })
			if err != nil {
				return err
			}
			imp.pacienteIds[row.ID] = id
			return nil
		})
		imp.progress("pacientes", i+1)
	}
	return nil
}

func (imp *importer) importReceitas(ctx context.Context, counts *Counts) error {
	var rows []legacyReceita
	if err := imp.legacy.WithContext(ctx).Table("receitas").Order("id").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		row := row
		imp.importRow("receitas", row.ID, counts, func() error {
			pacienteId, ok := imp.resolvePaciente(ctx, row.PacienteId)
			if !ok {
				return fmt.Errorf("receita references unknown paciente %d", row.PacienteId)
			}
			medicoId, ok := imp.resolveMedico(ctx, row.MedicoId)
			if !ok {
				return fmt.Errorf("receita references unknown medico %d", row.MedicoId)
			}

			var itens []legacyReceitaItem
			if err := imp.legacy.WithContext(ctx).Table("receita_itens").
				Where("receita_id = ?", row.ID).Order("id").Find(&itens).Error; err != nil {
				return err
			}

			existing, err := findByLegacyId[models.Receita](ctx, imp.target, row.ID)
			if err != nil {
				return err
			}
			dataEmissao := time.Now()
			if row.DataEmissao != nil {
				dataEmissao = *row.DataEmissao
			}
			record := models.Receita{
				PacienteId:  pacienteId,
				MedicoId:    medicoId,
				DataEmissao: dataEmissao,
				Observacao:  row.Observacao,
				LegacyId:    &row.ID,
			}
			for i := range itens {
				item := itens[i]
				produtoId, ok := imp.resolveProdutoCodigo(ctx, item.CodigoProduto)
				if !ok {
					counts.SkippedUnmatched++
					imp.logger.Warnf("receita legacy id %d item %d: no produto with codigo %q", row.ID, item.ID, item.CodigoProduto)
					continue
				}
				record.Itens = append(record.Itens, &models.ReceitaItem{
					ProdutoId:     produtoId,
					Quantidade:    decimalFromFloat(item.Quantidade),
					ValorUnitario: decimalFromFloat(item.ValorUnitario),
					Posologia:     item.Posologia,
					LegacyId:      &item.ID,
				})
			}

			if existing != nil {
				if imp.opts.DryRun {
					return nil
				}
				// Replace the item set wholesale; rerunning the importer
				// must converge, not accumulate duplicates.
				if err := imp.target.WithContext(ctx).Where("receita_id = ?", existing.ID).Delete(&models.ReceitaItem{}).Error; err != nil {
					return err
				}
				for _, item := range record.Itens {
					item.ReceitaId = existing.ID
				}
				record.ID = existing.ID
				// Save writes every column; keep the ERP order id the sync
				// may have stamped since the last import.
				record.TinyPedidoId = existing.TinyPedidoId
				return imp.target.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(&record).Error
			}
			if imp.opts.DryRun {
				return nil
			}
			return imp.target.WithContext(ctx).Create(&record).Error
		})
		imp.progress("receitas", i+1)
	}
	return nil
}

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// upsert writes record, reusing existing's primary key when present. In dry
// run nothing is written and the id comes back as zero, which is fine: the
// in-run maps only need presence, not real keys.
func upsert[T any](ctx context.Context, imp *importer, existing *T, record *T, idOf func(*T) int) (int, error) {
	if imp.opts.DryRun {
		if existing != nil {
			return idOf(existing), nil
		}
		return 0, nil
	}
	if existing != nil {
		if err := imp.target.WithContext(ctx).Model(existing).Updates(record).Error; err != nil {
			return 0, err
		}
		return idOf(existing), nil
	}
	if err := imp.target.WithContext(ctx).Create(record).Error; err != nil {
		return 0, err
	}
	return idOf(record), nil
}

func findByLegacyId[T any](ctx context.Context, db *gorm.DB, legacyId int64) (*T, error) {
	var record T
	err := db.WithContext(ctx).Where("legacy_id = ?", legacyId).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (imp *importer) resolveClinica(ctx context.Context, legacyId int64) (int, bool) {
	if id, ok := imp.clinicaIds[legacyId]; ok {
		return id, true
	}
	existing, err := findByLegacyId[models.Clinica](ctx, imp.target, legacyId)
	if err != nil || existing == nil {
		return 0, false
	}
	imp.clinicaIds[legacyId] = existing.ID
	return existing.ID, true
}

func (imp *importer) resolveMedico(ctx context.Context, legacyId int64) (int, bool) {
	if id, ok := imp.medicoIds[legacyId]; ok {
		return id, true
	}
	existing, err := findByLegacyId[models.Medico](ctx, imp.target, legacyId)
	if err != nil || existing == nil {
		return 0, false
	}
	imp.medicoIds[legacyId] = existing.ID
	return existing.ID, true
}

func (imp *importer) resolvePaciente(ctx context.Context, legacyId int64) (int, bool) {
	if id, ok := imp.pacienteIds[legacyId]; ok {
		return id, true
	}
	existing, err := findByLegacyId[models.Paciente](ctx, imp.target, legacyId)
	if err != nil || existing == nil {
		return 0, false
	}
	imp.pacienteIds[legacyId] = existing.ID
	return existing.ID, true
}

func (imp *importer) resolveProdutoCodigo(ctx context.Context, codigo string) (int, bool) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return 0, false
	}
	if id, ok := imp.produtoByCodigo[codigo]; ok {
		return id, true
	}
	var produto models.Produto
	err := imp.target.WithContext(ctx).Where("codigo = ?", codigo).Take(&produto).Error
	if err != nil {
		return 0, false
	}
	imp.produtoByCodigo[codigo] = produto.ID
	return produto.ID, true
}
