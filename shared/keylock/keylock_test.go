package keylock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/shared/keylock"
)

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	km := keylock.New()

	const goroutines = 50

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			release, err := km.Acquire(context.Background(), "room-1")
			assert.NoError(t, err)

			// Non-atomic increment; only safe if acquisitions serialize.
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1

			release()
		}()
	}

	wg.Wait()

	assert.Equal(t, goroutines, counter)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	km := keylock.New()

	releaseA, err := km.Acquire(context.Background(), "room-a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	releaseB, err := km.Acquire(ctx, "room-b")
	require.NoError(t, err, "acquisition on a different key must not wait")
	releaseB()
}

func TestKeyedMutex_CancelledWaiter(t *testing.T) {
	km := keylock.New()

	release, err := km.Acquire(context.Background(), "room-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		_, err := km.Acquire(ctx, "room-1")
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	release()
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	km := keylock.New()

	release, err := km.Acquire(context.Background(), "room-1")
	require.NoError(t, err)

	release()
	release()

	releaseAgain, err := km.Acquire(context.Background(), "room-1")
	require.NoError(t, err)
	releaseAgain()

	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_TableDoesNotGrow(t *testing.T) {
	km := keylock.New()

	var wg sync.WaitGroup

	for i := range 200 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			key := string(rune('a' + n%26))

			release, err := km.Acquire(context.Background(), key)
			assert.NoError(t, err)
			release()
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 0, km.Len())
}
