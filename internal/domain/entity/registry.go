// Package entity is the generic record access layer: list, get, create,
// update and delete over an allow-listed set of schema-qualified tables,
// scoped to the caller's company.
package entity

import (
	"fmt"
	"sort"

	"compras/internal/core/apperror"
)

// Table is an allow-listed table.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"table"`
	// CompanyScoped tables carry company_id and are filtered by it.
	CompanyScoped bool `json:"company_scoped"`
	// ReadOnly tables reject create, update and delete.
	ReadOnly bool `json:"read_only"`
}

// QualifiedName returns schema.table.
func (t Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// Registry is the allow-list of tables reachable through the entity layer.
type Registry struct {
	tables map[string]Table
}

// NewRegistry creates a registry holding tables.
func NewRegistry(tables ...Table) *Registry {
	r := &Registry{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		r.tables[t.QualifiedName()] = t
	}
	return r
}

// DefaultRegistry lists the procurement, warehouse, HR portal and shared
// tables.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Table{Schema: "compras", Name: "requisicoes_compra", CompanyScoped: true},
		Table{Schema: "compras", Name: "requisicao_itens"},
		Table{Schema: "compras", Name: "cotacao_ciclos", CompanyScoped: true},
		Table{Schema: "compras", Name: "cotacao_fornecedores", CompanyScoped: true},
		Table{Schema: "compras", Name: "cotacao_item_fornecedor"},
		Table{Schema: "compras", Name: "pedidos_compra", CompanyScoped: true},
		Table{Schema: "compras", Name: "fornecedores_dados", CompanyScoped: true},
		Table{Schema: "compras", Name: "nf_entradas", CompanyScoped: true},
		Table{Schema: "compras", Name: "workflow_logs", CompanyScoped: true, ReadOnly: true},
		Table{Schema: "almoxarifado", Name: "materiais_equipamentos", CompanyScoped: true},
		Table{Schema: "almoxarifado", Name: "almoxarifados", CompanyScoped: true},
		Table{Schema: "public", Name: "cost_centers", CompanyScoped: true},
		Table{Schema: "public", Name: "projects", CompanyScoped: true},
		Table{Schema: "public", Name: "configuracoes_aprovacao_unificada", CompanyScoped: true},
		Table{Schema: "rh", Name: "employees", CompanyScoped: true},
		Table{Schema: "rh", Name: "time_records", CompanyScoped: true},
		Table{Schema: "rh", Name: "vacations", CompanyScoped: true},
		Table{Schema: "rh", Name: "medical_certificates", CompanyScoped: true},
		Table{Schema: "rh", Name: "reimbursement_requests", CompanyScoped: true},
		Table{Schema: "rh", Name: "trainings", CompanyScoped: true},
		Table{Schema: "rh", Name: "training_certificates", CompanyScoped: true},
		Table{Schema: "public", Name: "partners", CompanyScoped: true},
		Table{Schema: "public", Name: "companies", ReadOnly: true},
	)
}

// Lookup returns an allow-listed table.
func (r *Registry) Lookup(schema, name string) (Table, error) {
	t, ok := r.tables[schema+"."+name]
	if !ok {
		return Table{}, apperror.NewValidation(fmt.Sprintf("tabela não permitida: %s.%s", schema, name)).
			WithDetail("schema", schema).
			WithDetail("table", name)
	}
	return t, nil
}

// Tables returns the allow-list sorted by qualified name.
func (r *Registry) Tables() []Table {
	out := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out
}
