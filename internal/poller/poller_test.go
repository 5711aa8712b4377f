package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoller_RunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	h := p.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_FailureDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	p := New("failing", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}, nil)

	h := p.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return h.Failures() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPoller_TriggerRunsWithoutWaitingForTick(t *testing.T) {
	var calls atomic.Int32
	p := New("trigger", time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	h := p.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	h.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPoller_StopCancelsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	p := New("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	h := p.Start(context.Background())
	<-started
	require.Equal(t, Fetching, h.State())

	h.Stop()
	h.Stop()
	require.Equal(t, Idle, h.State())
	require.Zero(t, h.Failures())

	select {
	case <-h.Done():
	default:
		t.Fatal("expected loop to have exited")
	}
}

func TestPoller_NoOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	p := New("overlap", time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}, nil)

	h := p.Start(context.Background())
	for i := 0; i < 10; i++ {
		h.Trigger()
	}
	time.Sleep(50 * time.Millisecond)
	h.Stop()

	require.Equal(t, int32(1), maxActive.Load())
}
