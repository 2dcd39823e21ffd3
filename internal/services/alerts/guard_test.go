package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/browser/memory"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

func newGuard(p *memory.Page) *Guard {
	logger := arbor.NewLogger()
	return NewGuard(p, waiter.New(logger, 5*time.Millisecond), logger)
}

func TestProbeAbsentIsNotAnError(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	g := newGuard(p)

	start := time.Now()
	state, err := g.Probe(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, state.Present)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestProbeReadsWithoutAccepting(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	p.OpenDialog("Please enter all the fields")
	g := newGuard(p)

	state, err := g.Probe(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, state.Present)
	assert.Equal(t, "Please enter all the fields", state.Text)
	assert.True(t, p.DialogOpen())
}

func TestAcceptIfPresent(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	g := newGuard(p)

	text, accepted, err := g.AcceptIfPresent(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Empty(t, text)

	p.OpenDialog("Please enter valid year")
	text, accepted, err = g.AcceptIfPresent(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "Please enter valid year", text)
	assert.False(t, p.DialogOpen())
}

func TestAcceptIfPresentWaitsForLateDialog(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	g := newGuard(p)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.OpenDialog("late")
	}()

	text, accepted, err := g.AcceptIfPresent(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "late", text)
}

func TestDismissStray(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	g := newGuard(p)

	text, err := g.DismissStray(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, text)

	p.OpenDialog("left over")
	text, err = g.DismissStray(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "left over", text)
	assert.False(t, p.DialogOpen())
}

func TestProbePropagatesContextErrors(t *testing.T) {
	p := memory.MustNew(`<body></body>`)
	g := newGuard(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Probe(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
