package should_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/amp-labs/amp-fsm/should"
	"github.com/stretchr/testify/assert"
)

var errCloseFailed = errors.New("close failed")

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true

	return m.closeErr
}

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return &buf
}

func TestClose(t *testing.T) { //nolint:paralleltest
	buf := captureDefault(t)

	ok := &mockCloser{}
	should.Close(context.Background(), ok, "closing ok")
	assert.True(t, ok.closed)
	assert.Empty(t, buf.String())

	bad := &mockCloser{closeErr: errCloseFailed}
	should.Close(context.Background(), bad, "closing store")
	assert.True(t, bad.closed)
	assert.Contains(t, buf.String(), "closing store")
	assert.Contains(t, buf.String(), "close failed")

	assert.NotPanics(t, func() {
		should.Close(context.Background(), nil, "nothing")
	})
}

func TestRun(t *testing.T) { //nolint:paralleltest
	buf := captureDefault(t)

	should.Run(context.Background(), func(context.Context) error { return nil }, "fine")
	assert.Empty(t, buf.String())

	should.Run(context.Background(), func(context.Context) error { return errCloseFailed }, "flushing telemetry")
	assert.Contains(t, buf.String(), "flushing telemetry")
}
