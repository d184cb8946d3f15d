// Package should runs cleanup that ought to succeed but may not. Failures
// are logged instead of returned, which suits defer statements.
package should

import (
	"context"
	"io"

	"github.com/amp-labs/amp-fsm/logger"
)

// Close closes c and logs msg with the error if that fails. A nil closer is
// ignored.
//
//	defer should.Close(ctx, st, "closing snapshot store")
func Close(ctx context.Context, c io.Closer, msg string) {
	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		logger.Get(ctx).Error(msg, "error", err)
	}
}

// Run calls fn and logs msg with the error if it fails.
func Run(ctx context.Context, fn func(context.Context) error, msg string) {
	if err := fn(ctx); err != nil {
		logger.Get(ctx).Error(msg, "error", err)
	}
}
