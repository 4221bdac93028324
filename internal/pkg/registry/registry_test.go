package registry

import (
	"context"
	"testing"
	"time"

	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type closer struct{ closed int }

func (c *closer) Close() { c.closed++ }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRegistry_PutGetRemove(t *testing.T) {
	r := New[*closer]("test", clock.NewFake(epoch), time.Minute)
	c := &closer{}
	key := r.Put(c)
	require.NotEmpty(t, key)
	minted, ok := id.Time(key)
	require.True(t, ok)
	assert.True(t, epoch.Equal(minted))

	_, ok = r.Get("not-a-flow-id")
	assert.False(t, ok)

	got, ok := r.Get(key)
	require.True(t, ok)
	assert.Same(t, c, got)

	assert.True(t, r.Remove(key))
	assert.False(t, r.Remove(key))
	assert.Equal(t, 1, c.closed)
	_, ok = r.Get(key)
	assert.False(t, ok)
}

func TestRegistry_SweepClosesIdleOnly(t *testing.T) {
	fc := clock.NewFake(epoch)
	r := New[*closer]("test", fc, time.Minute)
	idle := &closer{}
	busy := &closer{}
	r.Put(idle)
	busyKey := r.Put(busy)

	fc.Advance(45 * time.Second)
	r.Get(busyKey)
	fc.Advance(30 * time.Second)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, idle.closed)
	assert.Equal(t, 0, busy.closed)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RunClosesAllOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := New[*closer]("test", clock.NewFake(epoch), time.Minute)
	c := &closer{}
	r.Put(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Hour) }()
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, 1, c.closed)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ObserveReportsSize(t *testing.T) {
	fc := clock.NewFake(time.Now())
	r := New[*closer]("flows", fc, time.Minute)
	var sizes []int
	r.Observe(func(n int) { sizes = append(sizes, n) })

	a := r.Put(&closer{})
	r.Put(&closer{})
	r.Remove(a)
	r.Remove("missing")
	fc.Advance(2 * time.Minute)
	r.Sweep()

	assert.Equal(t, []int{1, 2, 1, 0}, sizes)
}
