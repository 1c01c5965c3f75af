package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_GetPut(t *testing.T) {
	p := New(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b *bytes.Buffer) { b.Reset() },
	)

	b := p.Get()
	require.NotNil(t, b)
	b.WriteString("scratch")

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Allocated)
	assert.Equal(t, int64(1), stats.InUse)
	assert.Equal(t, int64(1), stats.Gets)

	p.Put(b)
	assert.Zero(t, b.Len(), "reset runs on Put")
	assert.Zero(t, p.Stats().InUse)
}

func TestPool_Concurrent(t *testing.T) {
	p := New(func() []byte { return make([]byte, 0, 64) }, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Put(p.Get()[:0])
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Zero(t, stats.InUse)
	assert.Equal(t, int64(1600), stats.Gets)
	assert.Equal(t, stats.Gets-stats.Allocated, stats.Reused())
}
