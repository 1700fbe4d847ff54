package leave

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("entry is removed once released", func(t *testing.T) {
		km := newKeyedMutex()

		unlock := km.Lock("req-1")
		assert.Len(t, km.locks, 1)

		unlock()
		assert.Empty(t, km.locks)
	})

	t.Run("map stays bounded across many distinct keys", func(t *testing.T) {
		km := newKeyedMutex()

		for i := 0; i < 1000; i++ {
			unlock := km.Lock(string(rune('a'+i%26)) + "-request")
			unlock()
		}

		assert.Empty(t, km.locks)
	})

	t.Run("contended key survives until every holder releases", func(t *testing.T) {
		km := newKeyedMutex()

		first := km.Lock("req-1")

		second := make(chan func())
		go func() { second <- km.Lock("req-1") }()

		// The waiter has registered its interest, so releasing the first
		// holder must not evict the entry out from under it.
		assert.Eventually(t, func() bool {
			km.mu.Lock()
			defer km.mu.Unlock()
			l, ok := km.locks["req-1"]
			return ok && l.refs == 2
		}, time.Second, 5*time.Millisecond)

		first()

		unlock := <-second
		assert.Len(t, km.locks, 1)

		unlock()
		assert.Empty(t, km.locks)
	})

	t.Run("serializes critical sections per key", func(t *testing.T) {
		km := newKeyedMutex()

		var wg sync.WaitGroup
		counter := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := km.Lock("req-1")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
		assert.Empty(t, km.locks)
	})
}
