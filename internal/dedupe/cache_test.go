// ABOUTME: Tests for the webhook replay-suppression cache.
// ABOUTME: TTL expiry, size-bounded eviction, and concurrent access.

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeen_FirstTimeIsNotDuplicate(t *testing.T) {
	c := New(5*time.Minute, 100)
	defer c.Close()

	assert.False(t, c.Seen("act-1"))
	assert.True(t, c.Seen("act-1"))
}

func TestSeen_DistinctKeys(t *testing.T) {
	c := New(5*time.Minute, 100)
	defer c.Close()

	assert.False(t, c.Seen("act-1"))
	assert.False(t, c.Seen("act-2"))
	assert.Equal(t, 2, c.Len())
}

func TestSeen_ExpiredKeyIsNewAgain(t *testing.T) {
	c := New(10*time.Millisecond, 100)
	defer c.Close()

	assert.False(t, c.Seen("act-1"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.Seen("act-1"), "expired entry no longer counts as seen")
}

func TestSeen_EvictsOldestAtCapacity(t *testing.T) {
	c := New(5*time.Minute, 3)
	defer c.Close()

	c.Seen("a")
	c.Seen("b")
	c.Seen("c")
	c.Seen("d") // evicts "a"

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("a"), "oldest key was evicted")
}

func TestSeen_Concurrent(t *testing.T) {
	c := New(5*time.Minute, 1000)
	defer c.Close()

	var wg sync.WaitGroup
	duplicates := make([]bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Seen(fmt.Sprintf("act-%d", i%10))
			duplicates[i] = c.Seen(fmt.Sprintf("act-%d", i%10))
		}(i)
	}
	wg.Wait()

	for i, dup := range duplicates {
		assert.True(t, dup, "second check %d must report duplicate", i)
	}
	assert.Equal(t, 10, c.Len())
}

func TestClose_Idempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
