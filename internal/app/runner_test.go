package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatchRunsAllTasks(t *testing.T) {
	var count atomic.Int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			URL: fmt.Sprintf("https://example.com/%d", i),
			Run: func(ctx context.Context) error {
				count.Add(1)
				return nil
			},
		}
	}

	result := RunBatch(context.Background(), tasks, 3)

	assert.Equal(t, int32(10), count.Load())
	assert.Equal(t, 10, result.Succeeded)
	assert.Empty(t, result.Failed)
}

func TestRunBatchRespectsConcurrencyCeiling(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32
	var mu sync.Mutex

	release := make(chan struct{})
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			URL: fmt.Sprintf("u%d", i),
			Run: func(ctx context.Context) error {
				n := inFlight.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()
				<-release
				inFlight.Add(-1)
				return nil
			},
		}
	}

	done := make(chan *BatchResult)
	go func() { done <- RunBatch(context.Background(), tasks, limit) }()

	// Let the window fill, then release everyone.
	time.Sleep(100 * time.Millisecond)
	close(release)

	select {
	case result := <-done:
		assert.Equal(t, 10, result.Succeeded)
	case <-time.After(5 * time.Second):
		t.Fatal("RunBatch did not return")
	}

	assert.LessOrEqual(t, peak.Load(), int32(limit), "peak in-flight exceeded the ceiling")
}

func TestRunBatchWindowIsBoundedByTaskCount(t *testing.T) {
	var count atomic.Int32
	tasks := []Task{{URL: "only", Run: func(ctx context.Context) error {
		count.Add(1)
		return nil
	}}}

	result := RunBatch(context.Background(), tasks, 50)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, int32(1), count.Load())
}

func TestRunBatchContainsFailures(t *testing.T) {
	tasks := make([]Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = Task{
			URL: fmt.Sprintf("https://example.com/%d", i),
			Run: func(ctx context.Context) error {
				if i == 2 {
					return fmt.Errorf("boom")
				}
				return nil
			},
		}
	}

	result := RunBatch(context.Background(), tasks, 2)

	assert.Equal(t, 4, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "https://example.com/2", result.Failed[0].URL)
	assert.EqualError(t, result.Failed[0].Err, "boom")
}

func TestRunBatchSlowTaskDoesNotBlockAdmission(t *testing.T) {
	blocked := make(chan struct{})
	var fastDone atomic.Int32

	tasks := []Task{
		{URL: "slow", Run: func(ctx context.Context) error {
			<-blocked
			return nil
		}},
		{URL: "fast1", Run: func(ctx context.Context) error { fastDone.Add(1); return nil }},
		{URL: "fast2", Run: func(ctx context.Context) error { fastDone.Add(1); return nil }},
		{URL: "fast3", Run: func(ctx context.Context) error { fastDone.Add(1); return nil }},
	}

	done := make(chan struct{})
	go func() {
		RunBatch(context.Background(), tasks, 2)
		close(done)
	}()

	// With a window of 2 and one slot wedged, the free slot must still
	// drain every fast task.
	assert.Eventually(t, func() bool { return fastDone.Load() == 3 },
		2*time.Second, 10*time.Millisecond)

	close(blocked)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunBatch did not return after all tasks settled")
	}
}

func TestRunBatchEmpty(t *testing.T) {
	result := RunBatch(context.Background(), nil, 3)
	assert.Equal(t, 0, result.Succeeded)
	assert.Empty(t, result.Failed)
}
