package approval

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/cel-go/cel"

	"compras/internal/core/apperror"
	"compras/pkg/logger"
)

// Router picks the approval config for a set of facts. Conditions are CEL
// expressions over valor_total, tipo, centro_custo_id and projeto_id that
// must evaluate to a bool; compiled programs are cached by expression.
type Router struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRouter creates a router.
func NewRouter() (*Router, error) {
	env, err := cel.NewEnv(
		cel.Variable("valor_total", cel.DoubleType),
		cel.Variable("tipo", cel.StringType),
		cel.Variable("centro_custo_id", cel.StringType),
		cel.Variable("projeto_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &Router{env: env, programs: map[string]cel.Program{}}, nil
}

// Check compiles a condition, returning a validation error when it does not
// parse or does not yield a bool.
func (r *Router) Check(condition string) error {
	_, err := r.program(condition)
	return err
}

func (r *Router) program(expr string) (cel.Program, error) {
	r.mu.RLock()
	prg, ok := r.programs[expr]
	r.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := r.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("condição de aprovação inválida").
			WithDetail("condicao", expr).
			WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("condição de aprovação deve ser booleana").
			WithDetail("condicao", expr)
	}
	prg, err := r.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}

	r.mu.Lock()
	r.programs[expr] = prg
	r.mu.Unlock()
	return prg, nil
}

func (r *Router) eval(expr string, f Facts) (bool, error) {
	prg, err := r.program(expr)
	if err != nil {
		return false, err
	}
	value, _ := f.Value.Float64()
	out, _, err := prg.Eval(map[string]any{
		"valor_total":     value,
		"tipo":            f.Type,
		"centro_custo_id": f.CostCenterID,
		"projeto_id":      f.ProjectID,
	})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", expr, err)
	}
	matched, ok := out.Value().(bool)
	return ok && matched, nil
}

// Route returns the config for facts among configs. Only active configs of
// the facts' process type are considered, highest level first. A config
// matches when its cost center and project (if set) equal the facts', the
// value is within its limit (if set) and its condition (if set) holds. With
// no match the first config of the highest level is used.
func (r *Router) Route(ctx context.Context, configs []Config, f Facts) (*Decision, error) {
	var candidates []*Config
	for i := range configs {
		c := &configs[i]
		if c.Active && c.ProcessType == f.ProcessType {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, apperror.NewNotFound("configuração de aprovação", f.ProcessType)
	}
	slices.SortStableFunc(candidates, func(a, b *Config) int { return b.Level - a.Level })

	for _, c := range candidates {
		ok, rule, err := r.matches(c, f)
		if err != nil {
			logger.Warn(ctx, "approval condition failed", "config", c.ID, "error", err)
			continue
		}
		if ok {
			return &Decision{Config: c, Rule: rule}, nil
		}
	}
	return &Decision{Config: candidates[0], Rule: "Nível máximo"}, nil
}

func (r *Router) matches(c *Config, f Facts) (bool, string, error) {
	rule := "Regra geral"
	if c.CostCenterID != nil {
		if *c.CostCenterID != f.CostCenterID {
			return false, "", nil
		}
		rule = "Regra por Centro de Custo"
	}
	if c.ProjectID != nil && *c.ProjectID != f.ProjectID {
		return false, "", nil
	}
	if c.ValueLimit != nil {
		if f.Value.GreaterThan(*c.ValueLimit) {
			return false, "", nil
		}
		if c.CostCenterID == nil {
			rule = fmt.Sprintf("Regra por Valor (até R$ %s)", c.ValueLimit.StringFixed(2))
		}
	}
	if c.Condition != nil && *c.Condition != "" {
		ok, err := r.eval(*c.Condition, f)
		if err != nil || !ok {
			return false, "", err
		}
		rule = "Regra por Condição"
	}
	return true, rule, nil
}
