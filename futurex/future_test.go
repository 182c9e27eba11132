package futurex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolveOnce(t *testing.T) {
	f := NewFuture[int]()

	assert.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("too late")))

	val, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestFutureReject(t *testing.T) {
	expectedErr := errors.New("failed")
	f := Rejected[string](expectedErr)

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, expectedErr)
}

func TestFutureWaitContextDone(t *testing.T) {
	f := NewFuture[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the future is still usable after a waiter gives up
	f.Resolve(5)
	val, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, val)
}

func TestFutureConcurrentCompletion(t *testing.T) {
	f := NewFuture[int]()

	var wg sync.WaitGroup
	var winners int
	var winnersLock sync.Mutex
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if f.Resolve(i) {
				winnersLock.Lock()
				winners++
				winnersLock.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	<-f.Done()
}

func TestThen(t *testing.T) {
	f := NewFuture[int]()
	out := Then(f, nil, func(v int) (string, error) {
		if v < 0 {
			return "", errors.New("negative")
		}
		return "ok", nil
	})

	f.Resolve(3)

	val, err := out.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}

func TestThenPropagatesError(t *testing.T) {
	expectedErr := errors.New("upstream")
	called := false

	out := Then(Rejected[int](expectedErr), DefaultScheduler, func(v int) (int, error) {
		called = true
		return v, nil
	})

	_, err := out.Wait(context.Background())
	assert.ErrorIs(t, err, expectedErr)
	assert.False(t, called)
}

func TestThenUsesScheduler(t *testing.T) {
	var jobs []func()
	sched := SchedulerFunc(func(fn func()) {
		jobs = append(jobs, fn)
	})

	out := Then(Resolved(2), sched, func(v int) (int, error) {
		return v * 2, nil
	})

	require.Len(t, jobs, 1)
	select {
	case <-out.Done():
		t.Fatalf("continuation ran before the scheduler did")
	default:
	}

	jobs[0]()

	val, err := out.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, val)
}

func TestBridgeCallback(t *testing.T) {
	t.Run("async callback", func(t *testing.T) {
		f := BridgeCallback(func(cb func(string, error)) error {
			go cb("hello", nil)
			return nil
		})

		val, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hello", val)
	})

	t.Run("callback error", func(t *testing.T) {
		expectedErr := errors.New("callback failed")
		f := BridgeCallback(func(cb func(string, error)) error {
			cb("", expectedErr)
			return nil
		})

		_, err := f.Wait(context.Background())
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("dispatch error", func(t *testing.T) {
		expectedErr := errors.New("dispatch failed")
		f := BridgeCallback(func(cb func(string, error)) error {
			return expectedErr
		})

		_, err := f.Wait(context.Background())
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("double callback", func(t *testing.T) {
		f := BridgeCallback(func(cb func(int, error)) error {
			cb(1, nil)
			cb(2, nil)
			return nil
		})

		val, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, val)
	})
}
