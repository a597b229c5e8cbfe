package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bft-labs/recship/pkg/clock"
)

func TestDebouncer_TrailingCall(t *testing.T) {
	var mu sync.Mutex
	mock := clock.NewMock(time.Unix(0, 0))
	d := newDebouncer(mock, 150*time.Millisecond, &mu)

	var got []int
	mu.Lock()
	for i := 1; i <= 3; i++ {
		i := i
		d.Trigger(func() { got = append(got, i) })
	}
	assert.True(t, d.Pending())
	mu.Unlock()

	mock.Advance(149 * time.Millisecond)
	assert.Empty(t, got)
	mock.Advance(time.Millisecond)
	assert.Equal(t, []int{3}, got)
	assert.False(t, d.Pending())
	assert.Zero(t, mock.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	var mu sync.Mutex
	mock := clock.NewMock(time.Unix(0, 0))
	d := newDebouncer(mock, 150*time.Millisecond, &mu)

	called := false
	mu.Lock()
	d.Trigger(func() { called = true })
	d.Cancel()
	mu.Unlock()

	mock.Advance(time.Second)
	assert.False(t, called)
}

// lateClock hands out timers that report they already fired, the way a
// real timer does when its callback is waiting on the lock.
type lateClock struct {
	clock.Clock
	fns []func()
}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

func (c *lateClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.fns = append(c.fns, f)
	return firedTimer{}
}

func TestDebouncer_StaleTimerAfterCancel(t *testing.T) {
	var mu sync.Mutex
	clk := &lateClock{Clock: clock.Real()}
	d := newDebouncer(clk, 150*time.Millisecond, &mu)

	called := false
	mu.Lock()
	d.Trigger(func() { called = true })
	d.Cancel()
	mu.Unlock()

	// The callback runs after Cancel even though Stop could not prevent it.
	clk.fns[0]()
	assert.False(t, called)
}
