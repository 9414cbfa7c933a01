package buffer

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAssignsStrictlyIncreasingKeys(t *testing.T) {
	b := New()

	var prev int64 = math.MinInt64
	for i := 0; i < 10000; i++ {
		key := b.Insert("line")
		assert.Greater(t, key, prev)
		prev = key
	}
	assert.Equal(t, 10000, b.Size())
}

func TestDrainReturnsAllInsertedInOrder(t *testing.T) {
	b := New()

	const producers = 16
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Insert(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	// Tight insert loops can outrun the microsecond clock, leaving keys
	// ahead of time.Now; drain with an unbounded threshold to collect all.
	drained := b.DrainUpTo(math.MaxInt64)
	require.Len(t, drained, producers*perProducer)
	assert.Equal(t, 0, b.Size())

	seen := make(map[string]bool, len(drained))
	for i, e := range drained {
		if i > 0 {
			assert.Greater(t, e.Key, drained[i-1].Key, "keys out of order at %d", i)
		}
		assert.False(t, seen[e.Line], "duplicate line %q", e.Line)
		seen[e.Line] = true
	}
}

func TestDrainRespectsThreshold(t *testing.T) {
	b := New()

	k1 := b.Insert("first")
	k2 := b.Insert("second")
	k3 := b.Insert("third")

	drained := b.DrainUpTo(k2)
	require.Len(t, drained, 2)
	assert.Equal(t, "first", drained[0].Line)
	assert.Equal(t, "second", drained[1].Line)
	assert.Equal(t, k1, drained[0].Key)
	assert.Equal(t, 1, b.Size())

	// Second drain picks up exactly the remainder, nothing twice.
	rest := b.DrainUpTo(k3)
	require.Len(t, rest, 1)
	assert.Equal(t, "third", rest[0].Line)
	assert.Equal(t, 0, b.Size())
}

func TestDrainBelowAllKeysReturnsNothing(t *testing.T) {
	b := New()

	key := b.Insert("future")
	drained := b.DrainUpTo(key - 1)
	assert.Empty(t, drained)
	assert.Equal(t, 1, b.Size())
}

func TestDrainEmptyBuffer(t *testing.T) {
	b := New()
	assert.Empty(t, b.DrainUpTo(time.Now().UnixMicro()))
}

// Concurrent inserts while drains run: every inserted line must come out
// of exactly one drain.
func TestConcurrentInsertAndDrain(t *testing.T) {
	b := New()

	const producers = 8
	const perProducer = 1000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Insert(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}

	collected := make(map[string]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func(threshold int64) {
		for _, e := range b.DrainUpTo(threshold) {
			collected[e.Line]++
		}
	}

	for {
		select {
		case <-done:
			// Producers finished; one final drain collects stragglers.
			drain(math.MaxInt64)
			require.Len(t, collected, producers*perProducer)
			for line, n := range collected {
				assert.Equal(t, 1, n, "line %q drained %d times", line, n)
			}
			assert.Equal(t, 0, b.Size())
			return
		default:
			drain(time.Now().UnixMicro())
		}
	}
}

func TestGetStats(t *testing.T) {
	b := New()

	b.Insert("a")
	b.Insert("b")
	b.DrainUpTo(math.MaxInt64)
	b.Insert("c")

	stats := b.GetStats()
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, uint64(3), stats.TotalInserted)
	assert.Equal(t, uint64(2), stats.TotalDrained)
}
