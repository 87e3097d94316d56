package dto

import (
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/storage/postgres"
)

// SessionEdit is a request carrying the session it edits.
type SessionEdit interface {
	EditedSession() *quotation.Session
}

// SessionRequest carries a working session.
type SessionRequest struct {
	Session *quotation.Session `json:"sessao" binding:"required"`
}

func (r *SessionRequest) EditedSession() *quotation.Session { return r.Session }

// WinnerRequest flags (or unflags) a supplier as winner of one item.
type WinnerRequest struct {
	Session     *quotation.Session `json:"sessao" binding:"required"`
	ItemKey     string             `json:"item" binding:"required"`
	SupplierKey string             `json:"fornecedor" binding:"required"`
	Winner      *bool              `json:"vencedor"`
}

func (r *WinnerRequest) EditedSession() *quotation.Session { return r.Session }

// ItemRequest names one item of the session.
type ItemRequest struct {
	Session *quotation.Session `json:"sessao" binding:"required"`
	ItemKey string             `json:"item" binding:"required"`
}

func (r *ItemRequest) EditedSession() *quotation.Session { return r.Session }

// SupplierRequest adds a supplier row, or replaces the conditions of the row
// named in the path.
type SupplierRequest struct {
	Session  *quotation.Session `json:"sessao" binding:"required"`
	Supplier quotation.Supplier `json:"fornecedor"`
}

func (r *SupplierRequest) EditedSession() *quotation.Session { return r.Session }

// CellRequest stores one supplier's offer for one item.
type CellRequest struct {
	Session     *quotation.Session `json:"sessao" binding:"required"`
	SupplierKey string             `json:"fornecedor" binding:"required"`
	ItemKey     string             `json:"item" binding:"required"`
	Cell        quotation.Cell     `json:"valor"`
}

func (r *CellRequest) EditedSession() *quotation.Session { return r.Session }

// SelectionRequest toggles one item, or sets every item when All is given.
type SelectionRequest struct {
	Session *quotation.Session `json:"sessao" binding:"required"`
	ItemKey string             `json:"item"`
	All     *bool              `json:"todos"`
}

func (r *SelectionRequest) EditedSession() *quotation.Session { return r.Session }

// TypeRequest changes the quotation type.
type TypeRequest struct {
	Session *quotation.Session `json:"sessao" binding:"required"`
	Type    requisition.Type   `json:"tipo_cotacao" binding:"required"`
}

func (r *TypeRequest) EditedSession() *quotation.Session { return r.Session }

// IsWinner defaults to true when the flag is omitted.
func (r WinnerRequest) IsWinner() bool {
	return r.Winner == nil || *r.Winner
}

// ExportRequest renders a session. Number names the file.
type ExportRequest struct {
	Session *quotation.Session `json:"sessao" binding:"required"`
	Number  string             `json:"numero_cotacao"`
}

// SessionResponse returns a session with its recomputed comparison.
type SessionResponse struct {
	Session *quotation.Session `json:"sessao"`
	Preview quotation.Preview  `json:"comparativo"`
}

// ValidationResponse is the outcome of the submission gate.
type ValidationResponse struct {
	Valid   bool           `json:"valid"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// QuotationHistoryResponse lists the state changes and audit rows of a cycle.
type QuotationHistoryResponse struct {
	Cycle       *quotation.Cycle      `json:"cotacao"`
	Transitions []workflow.Log        `json:"transicoes"`
	Audit       []postgres.AuditEntry `json:"auditoria"`
}
