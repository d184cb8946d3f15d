package definition

import (
	"context"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/dop251/goja"
)

// Guard is the guard type of compiled machines.
type Guard = fsm.Guard[*Bindings]

// expressionGuard evaluates an expression against the machine's bindings.
// A boolean result maps to enabled or disabled; the string "default" maps
// to the default result. An expression that throws is disabled.
type expressionGuard struct {
	expr *script
}

func newExpressionGuard(name, src string) (*expressionGuard, error) {
	expr, err := compileExpression(name, src)
	if err != nil {
		return nil, err
	}

	return &expressionGuard{expr: expr}, nil
}

func (g *expressionGuard) Name() string {
	return g.expr.source
}

func (g *expressionGuard) Evaluate(ctx context.Context, m *fsm.FSM[*Bindings], in *fsm.Input) fsm.Result {
	v, err := g.expr.run(ctx, goja.New(), env{
		bindings: m.Data().Values(),
		state:    m.State().Name(),
		input:    in.Name(),
	})
	if err != nil {
		logger.Get(ctx).Error("Guard evaluation failed, treating as disabled",
			"guard", g.expr.source,
			"state", m.State().Name(),
			"input", in.Name(),
			"error", err,
		)

		return fsm.Disabled
	}

	return toResult(v)
}

func toResult(v goja.Value) fsm.Result {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return fsm.Disabled
	}

	if s, ok := v.Export().(string); ok {
		switch strings.ToLower(s) {
		case "default":
			return fsm.Default
		case "enabled":
			return fsm.Enabled
		case "disabled":
			return fsm.Disabled
		}
	}

	if v.ToBoolean() {
		return fsm.Enabled
	}

	return fsm.Disabled
}

// buildGuard returns the guard described by a transition, or nil when the
// transition is unguarded.
func buildGuard(location string, t TransitionConfig) (Guard, error) {
	var guard Guard

	switch {
	case t.Guard != "":
		g, err := newExpressionGuard(location, t.Guard)
		if err != nil {
			return nil, err
		}

		guard = g
	case t.Unless != "":
		g, err := newExpressionGuard(location, t.Unless)
		if err != nil {
			return nil, err
		}

		guard = fsm.Complement[*Bindings](g)
	case t.Otherwise:
		guard = fsm.Otherwise[*Bindings]()
	default:
		return nil, nil //nolint:nilnil // Unguarded transition
	}

	if t.Name != "" {
		guard = fsm.NamedGuard(t.Name, guard)
	}

	return guard, nil
}
