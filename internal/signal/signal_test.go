package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	s := New()
	require.False(t, s.Resolved())

	require.NoError(t, s.Resolve())
	assert.True(t, s.Resolved())
	assert.NoError(t, s.Err())

	err := s.Resolve()
	require.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestFail(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	require.NoError(t, s.Fail(boom))
	assert.True(t, s.Resolved())
	assert.ErrorIs(t, s.Err(), boom)

	// Any second resolution attempt is rejected.
	assert.ErrorIs(t, s.Resolve(), ErrAlreadyResolved)
	assert.ErrorIs(t, s.Fail(errors.New("again")), ErrAlreadyResolved)
}

func TestWaitBlocksUntilResolved(t *testing.T) {
	s := New()
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		close(started)
		done <- s.Wait(context.Background())
	}()

	<-started
	select {
	case err := <-done:
		t.Fatalf("Wait returned before Resolve: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.Resolve())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Resolve")
	}
}

func TestWaitObservesFailure(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background()) }()

	require.NoError(t, s.Fail(boom))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Fail")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Wait(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
	assert.False(t, s.Resolved())
}

func TestManyConcurrentWaiters(t *testing.T) {
	s := New()
	const waiters = 50

	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Wait(context.Background())
		}()
	}

	require.NoError(t, s.Resolve())
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
