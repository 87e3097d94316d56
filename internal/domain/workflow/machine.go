// Package workflow holds the procurement state machines and the service that
// moves requisitions, quote cycles and purchase orders between states while
// appending to the workflow log.
package workflow

import (
	"slices"

	"compras/internal/core/apperror"
)

// State is a workflow_state value.
type State string

// Requisition states.
const (
	RequisitionCreated         State = "criada"
	RequisitionPendingApproval State = "pendente_aprovacao"
	RequisitionApproved        State = "aprovada"
	RequisitionRejected        State = "reprovada"
	RequisitionForwarded       State = "encaminhada"
	RequisitionInQuotation     State = "em_cotacao"
	RequisitionFinished        State = "finalizada"
	RequisitionCancelled       State = "cancelada"
)

// Quote states.
const (
	QuoteOpen       State = "aberta"
	QuoteComplete   State = "completa"
	QuoteInApproval State = "em_aprovacao"
	QuoteApproved   State = "aprovada"
	QuoteRejected   State = "reprovada"
)

// Purchase order states.
const (
	OrderOpen      State = "aberto"
	OrderApproved  State = "aprovado"
	OrderRejected  State = "reprovado"
	OrderDelivered State = "entregue"
	OrderFinished  State = "finalizado"
)

// Kind identifies the workflow an entity follows. The value is written to
// workflow_logs.entity_type.
type Kind string

const (
	KindRequisition   Kind = "requisicao_compra"
	KindQuote         Kind = "cotacao"
	KindPurchaseOrder Kind = "pedido_compra"
)

// Machine is a transition table. States missing from the table are terminal.
type Machine struct {
	kind        Kind
	label       string
	table       string
	transitions map[State][]State
	status      func(to State) string
}

var (
	requisitionMachine = Machine{
		kind:  KindRequisition,
		label: "Requisição",
		table: "compras.requisicoes_compra",
		transitions: map[State][]State{
			RequisitionCreated:         {RequisitionPendingApproval, RequisitionCancelled},
			RequisitionPendingApproval: {RequisitionApproved, RequisitionRejected},
			RequisitionApproved:        {RequisitionForwarded, RequisitionCancelled},
			RequisitionForwarded:       {RequisitionInQuotation, RequisitionCancelled},
			RequisitionInQuotation:     {RequisitionFinished},
		},
		status: func(to State) string {
			switch to {
			case RequisitionPendingApproval, RequisitionApproved:
				return string(to)
			case RequisitionRejected:
				return string(RequisitionCancelled)
			}
			return ""
		},
	}

	quoteMachine = Machine{
		kind:  KindQuote,
		label: "Cotação",
		table: "compras.cotacao_ciclos",
		transitions: map[State][]State{
			QuoteOpen:       {QuoteComplete, QuoteRejected},
			QuoteComplete:   {QuoteInApproval, QuoteRejected},
			QuoteInApproval: {QuoteApproved, QuoteRejected},
		},
		status: func(to State) string { return string(to) },
	}

	orderMachine = Machine{
		kind:  KindPurchaseOrder,
		label: "Pedido",
		table: "compras.pedidos_compra",
		transitions: map[State][]State{
			OrderOpen:      {OrderApproved, OrderRejected},
			OrderApproved:  {OrderDelivered},
			OrderDelivered: {OrderFinished},
		},
		status: func(to State) string {
			if to == OrderOpen {
				return "rascunho"
			}
			return string(to)
		},
	}
)

// MachineFor returns the machine of a kind.
func MachineFor(kind Kind) (Machine, bool) {
	switch kind {
	case KindRequisition:
		return requisitionMachine, true
	case KindQuote:
		return quoteMachine, true
	case KindPurchaseOrder:
		return orderMachine, true
	}
	return Machine{}, false
}

// Kind returns the workflow kind.
func (m Machine) Kind() Kind { return m.kind }

// Table returns the table holding the entity's workflow_state column.
func (m Machine) Table() string { return m.table }

// Targets lists the states reachable from from.
func (m Machine) Targets(from State) []State {
	return slices.Clone(m.transitions[from])
}

// CanTransition reports whether from -> to is allowed.
func (m Machine) CanTransition(from, to State) bool {
	return slices.Contains(m.transitions[from], to)
}

// IsTerminal reports whether no transition leaves s.
func (m Machine) IsTerminal(s State) bool {
	return len(m.transitions[s]) == 0
}

// Enforce returns an INVALID_TRANSITION error when from -> to is not allowed.
func (m Machine) Enforce(from, to State) error {
	if !m.CanTransition(from, to) {
		return apperror.NewInvalidTransition(m.label, string(from), string(to))
	}
	return nil
}

// Status returns the status column value mirrored from the new state, or ""
// when the status column must be left untouched.
func (m Machine) Status(to State) string {
	return m.status(to)
}
