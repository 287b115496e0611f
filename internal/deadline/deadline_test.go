package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallReturnsResult(t *testing.T) {
	got, err := Call(context.Background(), time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCallPassesErrorThrough(t *testing.T) {
	want := errors.New("backend down")
	_, err := Call(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, want
	})
	assert.ErrorIs(t, err, want)
}

func TestCallStopsWaitingWhenFnIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	got, err := Call(context.Background(), 50*time.Millisecond, func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, got)
	assert.Less(t, elapsed, time.Second)
}

func TestCallCancelsFnContextOnExpiry(t *testing.T) {
	seen := make(chan error, 1)
	err := Do(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		seen <- ctx.Err()
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case got := <-seen:
		assert.ErrorIs(t, got, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("fn context was never cancelled")
	}
}

func TestCallRaisesPanicInCaller(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		_ = Do(context.Background(), time.Second, func(context.Context) error {
			panic("boom")
		})
	})
}

func TestCallWithoutDeadlineHonorsParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)

	err := Do(ctx, 0, func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
