package rtabi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAwaitReturnsResult(t *testing.T) {
	s := NewScheduler()
	task := s.Spawn(func(t *Task) (any, error) { return 7, nil })
	got, err := s.Await(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestAwaitSameTaskTwiceRunsBodyOnce(t *testing.T) {
	s := NewScheduler()
	runs := 0
	task := s.Spawn(func(t *Task) (any, error) {
		runs++
		return runs, nil
	})
	first, err := s.Await(context.Background(), task)
	require.NoError(t, err)
	second, err := s.Await(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, runs)
}

func TestGatherPreservesTaskOrder(t *testing.T) {
	s := NewScheduler()
	slow := s.Spawn(func(t *Task) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "slow", nil
	})
	fast := s.Spawn(func(t *Task) (any, error) { return "fast", nil })
	results, err := s.Gather(context.Background(), []*Task{slow, fast})
	require.NoError(t, err)
	assert.Equal(t, []any{"slow", "fast"}, results)
}

func TestCancelBeforeRunRaisesCancelled(t *testing.T) {
	s := NewScheduler()
	gate := make(chan struct{})
	blocker := s.Spawn(func(t *Task) (any, error) {
		<-gate
		return nil, nil
	})
	victim := s.Spawn(func(t *Task) (any, error) {
		if _, err := s.Await(context.Background(), blocker); err != nil {
			return nil, err
		}
		if t.isCancelled() {
			return nil, &Cancelled{TaskID: t.ID()}
		}
		return "survived", nil
	})
	victim.Cancel()
	close(gate)
	_, err := s.Await(context.Background(), victim)
	var c *Cancelled
	require.ErrorAs(t, err, &c)
	assert.Equal(t, victim.ID(), c.TaskID)
}

func TestAwaitHonoursContextCancellation(t *testing.T) {
	s := NewScheduler()
	gate := make(chan struct{})
	defer close(gate)
	task := s.Spawn(func(t *Task) (any, error) {
		<-gate
		return nil, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Await(ctx, task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	s := NewScheduler()
	p := NewPool(context.Background(), 1)
	running := make(chan struct{}, 2)
	release := make(chan struct{})

	first := p.Spawn(s, func() (any, error) {
		running <- struct{}{}
		<-release
		return 1, nil
	})
	second := p.Spawn(s, func() (any, error) {
		running <- struct{}{}
		return 2, nil
	})

	<-running
	select {
	case <-running:
		t.Fatal("second task ran while the only pool slot was held")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	_, err := s.Gather(context.Background(), []*Task{first, second})
	require.NoError(t, err)
}

func TestArenaAllocAndReset(t *testing.T) {
	a := NewArena(64)
	buf := a.Alloc(16)
	assert.Len(t, buf, 16)
	assert.Equal(t, 16, a.Used())
	a.Alloc(16)
	assert.Equal(t, 32, a.Used())
	a.Reset()
	assert.Equal(t, 0, a.Used())
}

func TestRefcountReachesZeroExactlyOnce(t *testing.T) {
	r := NewRefcounted()
	r.Retain()
	assert.False(t, r.Release())
	assert.True(t, r.Release())
	assert.Equal(t, int64(0), r.Count())
}
