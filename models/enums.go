package models

type AtendimentoStatus string

const (
	AtendimentoStatusNovo                AtendimentoStatus = "NOVO"
	AtendimentoStatusEmAndamento         AtendimentoStatus = "EM_ANDAMENTO"
	AtendimentoStatusAguardandoPagamento AtendimentoStatus = "AGUARDANDO_PAGAMENTO"
	AtendimentoStatusFinalizado          AtendimentoStatus = "FINALIZADO"
	AtendimentoStatusCancelado           AtendimentoStatus = "CANCELADO"
)

type ExportJobStatus string

const (
	ExportJobStatusQueued  ExportJobStatus = "QUEUED"
	ExportJobStatusRunning ExportJobStatus = "RUNNING"
	ExportJobStatusDone    ExportJobStatus = "DONE"
	ExportJobStatusFailed  ExportJobStatus = "FAILED"
)

type ExportJobKind string

const (
	ExportJobKindReceitas ExportJobKind = "receitas"
	ExportJobKindProdutos ExportJobKind = "produtos"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleOperador UserRole = "Operador"
)

// Settings keys for the Tiny ERP integration.
const (
	SettingTinyEnabled          = "tiny_enabled"
	SettingTinyAPIToken         = "tiny_api_token"
	SettingTinyProdutosLastSync = "tiny_produtos_last_sync"
)
