package utils

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolPutResets(t *testing.T) {
	pool := NewBufferPool()

	buf := pool.Get()
	require.NotNil(t, buf)
	buf.WriteString("test data")
	pool.Put(buf)

	assert.Equal(t, 0, pool.Get().Len())
}

func TestBufferPoolPutOversized(t *testing.T) {
	pool := NewBufferPool()
	buf := bytes.NewBuffer(make([]byte, MaxBufferSize+1024))

	assert.NotPanics(t, func() { pool.Put(buf) })
}

func TestStringBuilderPoolConcurrent(t *testing.T) {
	pool := NewStringBuilderPool()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sb := pool.Get()
			sb.WriteString("hello")
			assert.Equal(t, "hello", sb.String())
			pool.Put(sb)
		}()
	}
	wg.Wait()
}
