package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceMonotonic(t *testing.T) {
	seq := NewSequence()

	assert.Equal(t, NodeID(1), seq.Next())
	assert.Equal(t, NodeID(2), seq.Next())

	seq.Observe(10)
	assert.Equal(t, NodeID(11), seq.Next())

	// Observing a smaller id never rewinds.
	seq.Observe(3)
	assert.Equal(t, NodeID(12), seq.Next())

	seq.Reset()
	assert.Equal(t, RootID, seq.Next())
}

func TestSequenceConcurrentUnique(t *testing.T) {
	seq := NewSequence()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[NodeID]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n := seq.Next()
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, NodeID(workers*perWorker), seq.Last())
}

func TestNodeIDStringAndParse(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "42", NodeID(42).String())
	assert.False(t, None.Valid())
	assert.True(t, RootID.Valid())

	n, err := Parse("42")
	require.NoError(t, err)
	assert.Equal(t, NodeID(42), n)

	_, err = Parse("forty-two")
	assert.Error(t, err)
}

func TestNewRequestID(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	assert.True(t, strings.HasPrefix(a.String(), RequestPrefix+"_"))
	assert.NotEqual(t, a, b)
}
