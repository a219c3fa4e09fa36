package spin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Spin_ZeroValueUnlocked(t *testing.T) {
	var l Lock
	require.False(t, l.Locked())
	require.True(t, l.TryLock())
	require.True(t, l.Locked())
	l.Unlock()
	require.False(t, l.Locked())
}

func Test_Spin_TryLockFailsWhenHeld(t *testing.T) {
	var l Lock
	l.Lock()
	defer l.Unlock()

	require.False(t, l.TryLock())
	require.False(t, l.TryLock())
}

func Test_Spin_LockWaitsForUnlock(t *testing.T) {
	var l Lock
	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	l.Unlock()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func Test_Spin_MutualExclusion(t *testing.T) {
	const (
		workers = 8
		rounds  = 20000
	)
	var (
		l       Lock
		counter int
		inside  int
		wg      sync.WaitGroup
	)
	violations := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				l.Lock()
				inside++
				if inside != 1 {
					violations++
				}
				counter++
				inside--
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations)
	assert.Equal(t, workers*rounds, counter)
}

func Test_Spin_ConcurrentTryLock(t *testing.T) {
	var (
		l    Lock
		wins int
		mu   sync.Mutex
		wg   sync.WaitGroup
	)
	start := make(chan struct{})
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.TryLock() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.True(t, l.Locked())
}

func Test_Spin_DoesNotAllocate(t *testing.T) {
	var l Lock
	allocs := testing.AllocsPerRun(1000, func() {
		l.Lock()
		l.Unlock()
		if l.TryLock() {
			l.Unlock()
		}
	})
	require.Zero(t, allocs)
}
