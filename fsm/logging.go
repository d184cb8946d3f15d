package fsm

import (
	"context"
	"log/slog"
)

// Logger provides logging hooks for engine configuration and FSM execution.
type Logger interface {
	TransitionTaken(ctx context.Context, engine, id string, from *State, in *Input, to *State, kind Kind)
	TransitionRejected(ctx context.Context, engine, id string, from *State, in *Input)
	ActionFailed(ctx context.Context, engine, id string, from *State, in *Input, to *State, err error)
	RegistrationOverwritten(ctx context.Context, engine string, from *State, in *Input, prev, next *State)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger writing to slog.Default().
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(slog.Default())
}

// NewSlogLogger creates a logger writing to the given slog logger.
func NewSlogLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultLogger{logger: logger}
}

func (l *DefaultLogger) TransitionTaken(
	ctx context.Context, engine, id string, from *State, in *Input, to *State, kind Kind,
) {
	l.logger.DebugContext(ctx, "Transition taken",
		"engine", engine,
		"fsm_id", id,
		"from", from.Name(),
		"input", in.Name(),
		"to", to.Name(),
		"kind", string(kind),
	)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, engine, id string, from *State, in *Input) {
	l.logger.WarnContext(ctx, "No transition for input",
		"engine", engine,
		"fsm_id", id,
		"state", from.Name(),
		"input", in.Name(),
	)
}

func (l *DefaultLogger) ActionFailed(
	ctx context.Context, engine, id string, from *State, in *Input, to *State, err error,
) {
	l.logger.ErrorContext(ctx, "Transition action failed",
		"engine", engine,
		"fsm_id", id,
		"from", from.Name(),
		"input", in.Name(),
		"to", to.Name(),
		"error", err,
	)
}

func (l *DefaultLogger) RegistrationOverwritten(
	ctx context.Context, engine string, from *State, in *Input, prev, next *State,
) {
	l.logger.WarnContext(ctx, "Unguarded transition registered twice, last registration wins",
		"engine", engine,
		"state", from.Name(),
		"input", in.Name(),
		"previous_next", prev.Name(),
		"next", next.Name(),
	)
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) TransitionTaken(context.Context, string, string, *State, *Input, *State, Kind) {}

func (NopLogger) TransitionRejected(context.Context, string, string, *State, *Input) {}

func (NopLogger) ActionFailed(context.Context, string, string, *State, *Input, *State, error) {}

func (NopLogger) RegistrationOverwritten(context.Context, string, *State, *Input, *State, *State) {}
