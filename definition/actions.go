package definition

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/dop251/goja"
)

// Action is the action type of compiled machines.
type Action = fsm.Action[*Bindings]

// ActionBuilder creates an action from configuration. The registry is
// passed so builders can create nested actions.
type ActionBuilder func(registry *ActionRegistry, name string, params map[string]any) (Action, error)

// ActionRegistry creates actions from configuration. Applications can
// register custom builders to extend the built-in set.
type ActionRegistry struct {
	builders map[string]ActionBuilder
}

// NewActionRegistry creates a registry with the built-in builders:
// noop, set, unset, incr, fail, log, script and sequence.
func NewActionRegistry() *ActionRegistry {
	registry := &ActionRegistry{
		builders: make(map[string]ActionBuilder),
	}

	registry.Register("noop", noopActionBuilder)
	registry.Register("set", setActionBuilder)
	registry.Register("unset", unsetActionBuilder)
	registry.Register("incr", incrActionBuilder)
	registry.Register("fail", failActionBuilder)
	registry.Register("log", logActionBuilder)
	registry.Register("script", scriptActionBuilder)
	registry.Register("sequence", sequenceActionBuilder)

	return registry
}

// Register registers a builder for an action type, replacing any builder
// already registered for it.
func (r *ActionRegistry) Register(actionType string, builder ActionBuilder) {
	r.builders[actionType] = builder
}

// Types returns the registered action types in sorted order.
func (r *ActionRegistry) Types() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// Create creates an action from configuration.
func (r *ActionRegistry) Create(config ActionConfig) (Action, error) {
	builder, ok := r.builders[config.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, config.Type)
	}

	action, err := builder(r, config.Name, config.Parameters)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", config.Type, err)
	}

	name := config.Name
	if name == "" {
		name = config.Type
	}

	return fsm.NamedAction(name, action), nil
}

// CreateAll creates the actions in order and combines them into one.
// It returns nil when configs is empty.
func (r *ActionRegistry) CreateAll(configs []ActionConfig) (Action, error) {
	switch len(configs) {
	case 0:
		return nil, nil //nolint:nilnil // No action is a no-op
	case 1:
		return r.Create(configs[0])
	}

	actions := make([]Action, 0, len(configs))

	for _, config := range configs {
		action, err := r.Create(config)
		if err != nil {
			return nil, err
		}

		actions = append(actions, action)
	}

	return fsm.NamedAction(actionNames(configs), fsm.Sequence(actions...)), nil
}

func actionNames(configs []ActionConfig) string {
	names := make([]string, 0, len(configs))

	for _, c := range configs {
		if c.Name != "" {
			names = append(names, c.Name)
		} else {
			names = append(names, c.Type)
		}
	}

	return strings.Join(names, ",")
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %q must be a non-empty string", ErrInvalidParameter, key)
	}

	return v, nil
}

func noopActionBuilder(_ *ActionRegistry, _ string, _ map[string]any) (Action, error) {
	return fsm.ActionFunc[*Bindings](func(context.Context, *fsm.FSM[*Bindings], *fsm.Input) error {
		return nil
	}), nil
}

// setActionBuilder stores parameters.value under parameters.key.
func setActionBuilder(_ *ActionRegistry, _ string, params map[string]any) (Action, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}

	value := params["value"]

	return fsm.ActionFunc[*Bindings](func(_ context.Context, m *fsm.FSM[*Bindings], _ *fsm.Input) error {
		m.Data().Set(key, value)

		return nil
	}), nil
}

func unsetActionBuilder(_ *ActionRegistry, _ string, params map[string]any) (Action, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}

	return fsm.ActionFunc[*Bindings](func(_ context.Context, m *fsm.FSM[*Bindings], _ *fsm.Input) error {
		m.Data().Delete(key)

		return nil
	}), nil
}

// incrActionBuilder adds parameters.by (default 1) to the number stored
// under parameters.key. A missing binding counts as zero.
func incrActionBuilder(_ *ActionRegistry, _ string, params map[string]any) (Action, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}

	by, byInt, ok := 1.0, true, true
	if raw, present := params["by"]; present {
		by, byInt, ok = number(raw)
		if !ok {
			return nil, fmt.Errorf("%w: \"by\" must be a number", ErrInvalidParameter)
		}
	}

	return fsm.ActionFunc[*Bindings](func(_ context.Context, m *fsm.FSM[*Bindings], _ *fsm.Input) error {
		current, curInt := 0.0, true

		if raw, present := m.Data().Get(key); present {
			var isNumber bool

			current, curInt, isNumber = number(raw)
			if !isNumber {
				return fmt.Errorf("%w: %q holds %T", ErrNotANumber, key, raw)
			}
		}

		if curInt && byInt {
			m.Data().Set(key, int(current+by))
		} else {
			m.Data().Set(key, current+by)
		}

		return nil
	}), nil
}

// failActionBuilder creates an action that always fails, which aborts the
// transition and leaves the machine in its current state.
func failActionBuilder(_ *ActionRegistry, _ string, params map[string]any) (Action, error) {
	message, _ := params["message"].(string)
	if message == "" {
		message = "fail action"
	}

	return fsm.ActionFunc[*Bindings](func(context.Context, *fsm.FSM[*Bindings], *fsm.Input) error {
		return fmt.Errorf("%w: %s", ErrFailed, message)
	}), nil
}

func logActionBuilder(_ *ActionRegistry, name string, params map[string]any) (Action, error) {
	message, _ := params["message"].(string)
	if message == "" {
		message = "Transition"
	}

	level := slog.LevelInfo

	if raw, ok := params["level"].(string); ok {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("%w: level %q", ErrInvalidParameter, raw)
		}
	}

	return fsm.ActionFunc[*Bindings](func(ctx context.Context, m *fsm.FSM[*Bindings], in *fsm.Input) error {
		logger.Get(ctx).Log(ctx, level, message,
			"action", name,
			"fsm_id", m.ID(),
			"state", m.State().Name(),
			"input", in.Name(),
			"bindings", m.Data().Values(),
		)

		return nil
	}), nil
}

// scriptActionBuilder runs parameters.code. Inside the script, set(key,
// value) and unset(key) stage writes to the bindings and fail(message)
// aborts the transition. Staged writes, and the properties of a returned
// object, are applied only if the script completes.
func scriptActionBuilder(_ *ActionRegistry, name string, params map[string]any) (Action, error) {
	code, err := stringParam(params, "code")
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = "script"
	}

	program, err := compileScript(name, code)
	if err != nil {
		return nil, err
	}

	return &scriptAction{script: program}, nil
}

type scriptAction struct {
	script *script
}

func (a *scriptAction) Do(ctx context.Context, m *fsm.FSM[*Bindings], in *fsm.Input) error {
	var (
		vm      = goja.New()
		writes  = make(map[string]any)
		deletes = make(map[string]bool)
		failure error
	)

	funcs := map[string]func(call goja.FunctionCall) goja.Value{
		"set": func(call goja.FunctionCall) goja.Value {
			key := call.Argument(0).String()
			writes[key] = call.Argument(1).Export()
			delete(deletes, key)

			return goja.Undefined()
		},
		"unset": func(call goja.FunctionCall) goja.Value {
			key := call.Argument(0).String()
			deletes[key] = true
			delete(writes, key)

			return goja.Undefined()
		},
		"fail": func(call goja.FunctionCall) goja.Value {
			failure = fmt.Errorf("%w: %s", ErrFailed, call.Argument(0).String())

			panic(vm.ToValue(failure.Error()))
		},
	}

	v, err := a.script.run(ctx, vm, env{
		bindings: m.Data().Values(),
		state:    m.State().Name(),
		input:    in.Name(),
		funcs:    funcs,
	})
	if failure != nil {
		return failure
	}

	if err != nil {
		return err
	}

	if obj, ok := v.Export().(map[string]any); ok {
		for k, val := range obj {
			writes[k] = val
		}
	}

	for k := range deletes {
		m.Data().Delete(k)
	}

	m.Data().Merge(writes)

	return nil
}

// sequenceActionBuilder creates the actions listed in parameters.actions
// and runs them in order.
func sequenceActionBuilder(registry *ActionRegistry, _ string, params map[string]any) (Action, error) {
	raw, ok := params["actions"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: \"actions\" must be a list", ErrInvalidParameter)
	}

	configs := make([]ActionConfig, 0, len(raw))

	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: action %d is not a mapping", ErrInvalidParameter, i)
		}

		actionType, _ := entry["type"].(string)
		actionName, _ := entry["name"].(string)
		actionParams, _ := entry["parameters"].(map[string]any)

		configs = append(configs, ActionConfig{
			Type:       actionType,
			Name:       actionName,
			Parameters: actionParams,
		})
	}

	actions := make([]Action, 0, len(configs))

	for i, config := range configs {
		action, err := registry.Create(config)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		actions = append(actions, action)
	}

	return fsm.Sequence(actions...), nil
}
