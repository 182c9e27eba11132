package gocbstreamx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowQueueOrder(t *testing.T) {
	q := newRowQueue[int](4)

	for i := 0; i < 4; i++ {
		require.NoError(t, q.TryPush(i))
	}
	assert.ErrorIs(t, q.TryPush(4), errQueueFull)
	assert.Equal(t, 4, q.Len())

	for i := 0; i < 4; i++ {
		item, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestRowQueueFinish(t *testing.T) {
	q := newRowQueue[string](2)
	require.NoError(t, q.Push(context.Background(), "a"))

	streamErr := errors.New("stream broke")
	assert.False(t, q.IsFinished())
	assert.NoError(t, q.FinishErr())

	q.Finish(streamErr)
	q.Finish(nil)
	assert.True(t, q.IsFinished())

	item, ok, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", item)

	_, ok, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, streamErr, q.FinishErr())
}

func TestRowQueueAbortUnblocksPush(t *testing.T) {
	q := newRowQueue[int](1)
	require.NoError(t, q.Push(context.Background(), 1))

	pushErr := make(chan error, 1)
	go func() {
		pushErr <- q.Push(context.Background(), 2)
	}()

	select {
	case err := <-pushErr:
		t.Fatalf("push should block on a full queue, got %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	q.Abort()
	q.Abort()

	select {
	case err := <-pushErr:
		assert.ErrorIs(t, err, errQueueAborted)
	case <-time.After(time.Second):
		t.Fatal("push was not unblocked by abort")
	}

	assert.ErrorIs(t, q.Push(context.Background(), 3), errQueueAborted)
}

func TestRowQueuePushContext(t *testing.T) {
	q := newRowQueue[int](1)
	require.NoError(t, q.Push(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, q.Push(ctx, 2), context.DeadlineExceeded)
}

func TestRowQueuePushCanceledWithRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		q := newRowQueue[int](1)
		require.NoError(t, q.Push(ctx, i))

		item, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

func TestRowQueuePopContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		q := newRowQueue[int](1)
		require.NoError(t, q.TryPush(i))

		_, ok, err := q.Pop(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, q.Len())
	}
}

func TestRowQueueHasRoom(t *testing.T) {
	q := newRowQueue[int](2)
	assert.True(t, q.HasRoom())

	require.NoError(t, q.TryPush(1))
	assert.True(t, q.HasRoom())

	require.NoError(t, q.TryPush(2))
	assert.False(t, q.HasRoom())

	_, ok := q.TryPop()
	require.True(t, ok)
	assert.True(t, q.HasRoom())
}

func TestRowQueueMinimumSize(t *testing.T) {
	q := newRowQueue[int](0)
	require.NoError(t, q.TryPush(1))
	assert.ErrorIs(t, q.TryPush(2), errQueueFull)
}
