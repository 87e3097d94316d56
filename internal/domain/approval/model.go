// Package approval routes purchase processes to an approval configuration:
// the level and approvers that must sign off on a requisition, quotation or
// order.
package approval

import (
	"time"

	"compras/internal/core/id"
	"compras/internal/core/types"
)

// ProcessType is the kind of process an approval config applies to.
type ProcessType string

const (
	ProcessRequisition ProcessType = "requisicao_compra"
	ProcessQuotation   ProcessType = "cotacao_compra"
	ProcessPayable     ProcessType = "conta_pagar"
)

// Approver is one user in an approval config.
type Approver struct {
	UserID    string `json:"user_id"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"ordem"`
}

// Config is one row of public.configuracoes_aprovacao_unificada.
type Config struct {
	ID           id.ID        `db:"id" json:"id"`
	CompanyID    string       `db:"company_id" json:"company_id"`
	Name         *string      `db:"nome" json:"nome,omitempty"`
	ProcessType  ProcessType  `db:"processo_tipo" json:"processo_tipo"`
	CostCenterID *string      `db:"centro_custo_id" json:"centro_custo_id,omitempty"`
	ProjectID    *string      `db:"projeto_id" json:"projeto_id,omitempty"`
	ValueLimit   *types.Money `db:"valor_limite" json:"valor_limite,omitempty"`
	Level        int          `db:"nivel_aprovacao" json:"nivel_aprovacao"`
	Condition    *string      `db:"condicao" json:"condicao,omitempty"`
	Approvers    []Approver   `db:"aprovadores" json:"aprovadores"`
	Active       bool         `db:"ativo" json:"ativo"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Facts describe the process being routed.
type Facts struct {
	ProcessType  ProcessType `json:"processo_tipo"`
	CostCenterID string      `json:"centro_custo_id,omitempty"`
	ProjectID    string      `json:"projeto_id,omitempty"`
	Value        types.Money `json:"valor_total"`
	Type         string      `json:"tipo,omitempty"`
}

// Decision is the config a process was routed to.
type Decision struct {
	Config *Config `json:"config"`
	Rule   string  `json:"regra"`
}
