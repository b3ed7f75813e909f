package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsJobsInOrder(t *testing.T) {
	q := NewQueue(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.True(t, q.Submit("n", func(context.Context) error {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	cancel()
	<-done
	assert.False(t, q.Submit("late", func(context.Context) error { return nil }))
}

func TestQueue_FullQueueDrops(t *testing.T) {
	q := NewQueue(1)
	require.True(t, q.Submit("a", func(context.Context) error { return nil }))
	assert.False(t, q.Submit("b", func(context.Context) error { return nil }))
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueue_SurvivesPanicsAndErrors(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	ran := make(chan struct{})
	q.Submit("panics", func(context.Context) error { panic("boom") })
	q.Submit("fails", func(context.Context) error { return errors.New("nope") })
	q.Submit("ok", func(context.Context) error {
		close(ran)
		return nil
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queue stopped after a panicking job")
	}
}

func TestQueue_DrainsOnStop(t *testing.T) {
	q := NewQueue(4)
	var ran []string
	q.Submit("a", func(context.Context) error { ran = append(ran, "a"); return nil })
	q.Submit("b", func(ctx context.Context) error {
		ran = append(ran, "b")
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Run(ctx))
	assert.ElementsMatch(t, []string{"a", "b"}, ran)
}
