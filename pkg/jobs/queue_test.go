package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	q := NewQueue[int]("test", func(_ context.Context, job Job[int]) error {
		mu.Lock()
		seen = append(seen, job.Payload)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job[int]{Payload: i}))
	}
	q.Stop()

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var calls int32
	q := NewQueue[string]("test", func(context.Context, Job[string]) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	dropped := make(chan Job[string], 1)
	q.OnDrop(func(job Job[string], err error) {
		dropped <- job
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job[string]{ID: "j1", Payload: "hello"}))
	q.Stop()

	select {
	case job := <-dropped:
		assert.Equal(t, "j1", job.ID)
		assert.Equal(t, 2, job.Attempt)
	default:
		t.Fatal("expected job to be dropped")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue[int]("test", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job[int]{}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job[int]{}))
}

func TestQueueEnqueueFullBuffer(t *testing.T) {
	gate := make(chan struct{})
	q := NewQueue[int]("test", func(context.Context, Job[int]) error {
		<-gate
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 1}))
	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 2}))
	assert.ErrorIs(t, q.Enqueue(Job[int]{Payload: 3}), ErrQueueFull)

	close(gate)
	q.Stop()
}

func TestQueueEnqueueWaitOutlastsBuffer(t *testing.T) {
	var processed int32
	q := NewQueue[int]("test", func(context.Context, Job[int]) error {
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 2})
	q.Start(context.Background())

	for i := 0; i < 50; i++ {
		require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: i}))
	}
	q.Stop()

	assert.Equal(t, int32(50), atomic.LoadInt32(&processed))
}

func TestQueueEnqueueWaitHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	q := NewQueue[int]("test", func(context.Context, Job[int]) error {
		<-gate
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 1}))
	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.EnqueueWait(ctx, Job[int]{Payload: 3})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	q.Stop()
}

func TestQueueStopReleasesWaiters(t *testing.T) {
	gate := make(chan struct{})
	q := NewQueue[int]("test", func(context.Context, Job[int]) error {
		<-gate
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 1}))
	require.NoError(t, q.EnqueueWait(context.Background(), Job[int]{Payload: 2}))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- q.EnqueueWait(context.Background(), Job[int]{Payload: 3})
	}()
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case err := <-waitErr:
		assert.ErrorContains(t, err, "stopped")
	case <-time.After(2 * time.Second):
		t.Fatal("EnqueueWait was not released by Stop")
	}
	close(gate)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
