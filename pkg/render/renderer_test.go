package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name   string
	out    []byte
	err    error
	called bool
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Render(ctx context.Context, doc Document) ([]byte, error) {
	s.called = true
	return s.out, s.err
}

func TestChainUsesFirstSuccessfulBackend(t *testing.T) {
	first := &stubBackend{name: "first", out: []byte("%PDF-first")}
	second := &stubBackend{name: "second", out: []byte("%PDF-second")}
	chain := NewChain(nil, first, second)

	out, backend, err := chain.Render(context.Background(), Document{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "first", backend)
	assert.Equal(t, []byte("%PDF-first"), out)
	assert.False(t, second.called)
}

func TestChainSkipsFailingBackends(t *testing.T) {
	failing := &stubBackend{name: "failing", err: errors.New("boom")}
	empty := &stubBackend{name: "empty", out: nil}
	ok := &stubBackend{name: "ok", out: []byte("%PDF")}
	chain := NewChain(nil, failing, empty, ok)

	out, backend, err := chain.Render(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, "ok", backend)
	assert.NotEmpty(t, out)
}

type deadlineBackend struct {
	hadDeadline bool
}

func (d *deadlineBackend) Name() string { return "deadline" }

func (d *deadlineBackend) Render(ctx context.Context, _ Document) ([]byte, error) {
	_, d.hadDeadline = ctx.Deadline()
	return []byte("%PDF"), nil
}

func TestChainAppliesRenderTimeout(t *testing.T) {
	backend := &deadlineBackend{}
	chain := NewChain(nil, backend).WithTimeout(time.Second)

	_, _, err := chain.Render(context.Background(), Document{})
	require.NoError(t, err)
	assert.True(t, backend.hadDeadline)
}

func TestChainFailsWhenExhausted(t *testing.T) {
	failing := &stubBackend{name: "failing", err: errors.New("boom")}
	chain := NewChain(nil, failing)

	_, _, err := chain.Render(context.Background(), Document{})
	assert.Error(t, err)
}

func TestGofpdfBackendProducesOutput(t *testing.T) {
	backend := NewGofpdfBackend()
	out, err := backend.Render(context.Background(), Document{
		Title: "Technician 42 Report",
		Lines: []string{"Total records: 3", "", "Total distance: 111.20 km"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}
