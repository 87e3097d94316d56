package entity

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/domain"
	"compras/internal/domain/filter"
	"compras/pkg/logger"
)

// Record is a row as column -> value.
type Record = map[string]any

// Query is a resolved list request handed to the store.
type Query struct {
	Table   Table
	Columns []string
	// CompanyID is empty when the company filter is skipped.
	CompanyID string
	Filter    domain.ListFilter
}

// Store runs generic statements against allow-listed tables. Column names it
// receives have already been checked against Columns.
type Store interface {
	Columns(ctx context.Context, t Table) ([]string, error)
	List(ctx context.Context, q Query) (domain.ListResult[Record], error)
	Get(ctx context.Context, t Table, companyID string, recordID id.ID) (Record, error)
	Insert(ctx context.Context, t Table, data Record) (Record, error)
	Update(ctx context.Context, t Table, companyID string, recordID id.ID, data Record) (Record, error)
	Delete(ctx context.Context, t Table, companyID string, recordID id.ID) error
}

// ListParams is a list request as the client sends it.
type ListParams struct {
	Schema            string
	Table             string
	Filters           map[string]any
	AdvancedFilters   []filter.Item
	Page              int
	PageSize          int
	OrderBy           string
	SkipCompanyFilter bool
}

// Page is a list result with the hasMore flag the client pages on.
type Page struct {
	domain.ListResult[Record]
	HasMore bool `json:"hasMore"`
}

// columns never written from request data
var managedColumns = []string{"id", "company_id", "created_at", "updated_at"}

// Auditor records writes made through the entity layer. before is nil for
// inserts and after is nil for deletes.
type Auditor interface {
	RecordWrite(ctx context.Context, table string, recordID id.ID, before, after Record) error
}

// Service is the generic entity access service.
type Service struct {
	registry *Registry
	store    Store
	auditor  Auditor
	now      func() time.Time

	mu      sync.RWMutex
	columns map[string][]string
}

// NewService creates an entity service.
func NewService(registry *Registry, store Store) *Service {
	return &Service{
		registry: registry,
		store:    store,
		now:      time.Now,
		columns:  map[string][]string{},
	}
}

// SetAuditor enables the audit trail for writes.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// audit is best effort: the write already happened.
func (s *Service) audit(ctx context.Context, t Table, recordID id.ID, before, after Record) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.RecordWrite(ctx, t.QualifiedName(), recordID, before, after); err != nil {
		logger.Warn(ctx, "entity write not audited",
			"table", t.QualifiedName(),
			"id", recordID,
			"error", err)
	}
}

// before loads the current row for the audit trail.
func (s *Service) before(ctx context.Context, t Table, companyID string, recordID id.ID) (Record, error) {
	if s.auditor == nil {
		return nil, nil
	}
	return s.store.Get(ctx, t, companyID, recordID)
}

// Tables returns the allow-list.
func (s *Service) Tables() []Table {
	return s.registry.Tables()
}

func (s *Service) tableColumns(ctx context.Context, t Table) ([]string, error) {
	key := t.QualifiedName()
	s.mu.RLock()
	cols, ok := s.columns[key]
	s.mu.RUnlock()
	if ok {
		return cols, nil
	}

	cols, err := s.store.Columns(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", key, err)
	}
	if len(cols) == 0 {
		return nil, apperror.NewNotFound("tabela", key)
	}

	s.mu.Lock()
	s.columns[key] = cols
	s.mu.Unlock()
	return cols, nil
}

// InvalidateColumns drops the cached columns of schema.table, or of every
// table when qualifiedName is empty.
func (s *Service) InvalidateColumns(qualifiedName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qualifiedName == "" {
		s.columns = map[string][]string{}
		return
	}
	delete(s.columns, qualifiedName)
}

// companyScope returns the company id to filter by, or "" when the filter is
// skipped. Skipping on a company-scoped table is reserved to admins.
func (s *Service) companyScope(ctx context.Context, t Table, skip bool) (string, error) {
	if !t.CompanyScoped {
		return "", nil
	}
	if skip {
		if user := appctx.GetUser(ctx); user == nil || !user.IsAdmin {
			return "", apperror.NewForbidden("somente administradores podem ignorar o filtro de empresa")
		}
		return "", nil
	}
	companyID := appctx.GetCompanyID(ctx)
	if companyID == "" {
		return "", apperror.NewValidation(fmt.Sprintf("company_id é obrigatório para %s", t.QualifiedName()))
	}
	return companyID, nil
}

// List returns a page of records. Filter values that are empty or "all" are
// ignored. Defaults: page 1, DefaultPageSize rows, newest id first.
func (s *Service) List(ctx context.Context, p ListParams) (*Page, error) {
	t, err := s.registry.Lookup(p.Schema, p.Table)
	if err != nil {
		return nil, err
	}
	cols, err := s.tableColumns(ctx, t)
	if err != nil {
		return nil, err
	}
	companyID, err := s.companyScope(ctx, t, p.SkipCompanyFilter)
	if err != nil {
		return nil, err
	}

	f := domain.DefaultListFilter()
	f.Page(p.Page, p.PageSize)
	if p.OrderBy != "" {
		f.OrderBy = p.OrderBy
	}
	for field, value := range p.Filters {
		if skipFilterValue(value) {
			continue
		}
		f.AdvancedFilters = append(f.AdvancedFilters, filter.Eq(field, value))
	}
	f.AdvancedFilters = append(f.AdvancedFilters, p.AdvancedFilters...)
	for _, item := range f.AdvancedFilters {
		if !slices.Contains(cols, item.Field) {
			return nil, apperror.NewValidation(fmt.Sprintf("coluna inválida: %s", item.Field)).
				WithDetail("field", item.Field)
		}
	}

	res, err := s.store.List(ctx, Query{Table: t, Columns: cols, CompanyID: companyID, Filter: f})
	if err != nil {
		return nil, err
	}
	return &Page{
		ListResult: res,
		HasMore:    int64(f.Offset+f.Limit) < res.TotalCount,
	}, nil
}

func skipFilterValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "all"
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, schema, table string, recordID id.ID, skipCompanyFilter bool) (Record, error) {
	t, err := s.registry.Lookup(schema, table)
	if err != nil {
		return nil, err
	}
	companyID, err := s.companyScope(ctx, t, skipCompanyFilter)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, t, companyID, recordID)
}

// Create inserts a record. id, company_id and timestamps are set here.
func (s *Service) Create(ctx context.Context, schema, table string, data Record) (Record, error) {
	t, cols, err := s.writable(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	row, err := sanitize(cols, data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	row["id"] = id.New()
	if t.CompanyScoped {
		companyID := appctx.GetCompanyID(ctx)
		if companyID == "" {
			return nil, apperror.NewValidation(fmt.Sprintf("company_id é obrigatório para %s", t.QualifiedName()))
		}
		row["company_id"] = companyID
	}
	setIfColumn(cols, row, "created_at", now)
	setIfColumn(cols, row, "updated_at", now)

	rec, err := s.store.Insert(ctx, t, row)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, t, row["id"].(id.ID), nil, rec)
	return rec, nil
}

// Update changes the given columns of a record.
func (s *Service) Update(ctx context.Context, schema, table string, recordID id.ID, data Record, skipCompanyFilter bool) (Record, error) {
	t, cols, err := s.writable(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	row, err := sanitize(cols, data)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, apperror.NewValidation("nenhum campo para atualizar")
	}
	companyID, err := s.companyScope(ctx, t, skipCompanyFilter)
	if err != nil {
		return nil, err
	}
	setIfColumn(cols, row, "updated_at", s.now().UTC())

	old, err := s.before(ctx, t, companyID, recordID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Update(ctx, t, companyID, recordID, row)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, t, recordID, old, rec)
	return rec, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, schema, table string, recordID id.ID, skipCompanyFilter bool) error {
	t, _, err := s.writable(ctx, schema, table)
	if err != nil {
		return err
	}
	companyID, err := s.companyScope(ctx, t, skipCompanyFilter)
	if err != nil {
		return err
	}
	old, err := s.before(ctx, t, companyID, recordID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, t, companyID, recordID); err != nil {
		return err
	}
	s.audit(ctx, t, recordID, old, nil)
	return nil
}

func (s *Service) writable(ctx context.Context, schema, table string) (Table, []string, error) {
	t, err := s.registry.Lookup(schema, table)
	if err != nil {
		return Table{}, nil, err
	}
	if t.ReadOnly {
		return Table{}, nil, apperror.NewForbidden(fmt.Sprintf("%s é somente leitura", t.QualifiedName()))
	}
	cols, err := s.tableColumns(ctx, t)
	if err != nil {
		return Table{}, nil, err
	}
	return t, cols, nil
}

// sanitize drops managed columns and rejects unknown ones.
func sanitize(cols []string, data Record) (Record, error) {
	row := make(Record, len(data))
	for k, v := range data {
		if slices.Contains(managedColumns, k) {
			continue
		}
		if !slices.Contains(cols, k) {
			return nil, apperror.NewValidation(fmt.Sprintf("coluna inválida: %s", k)).WithDetail("field", k)
		}
		row[k] = v
	}
	return row, nil
}

func setIfColumn(cols []string, row Record, col string, v any) {
	if slices.Contains(cols, col) {
		row[col] = v
	}
}
