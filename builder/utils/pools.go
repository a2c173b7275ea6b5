package utils

import (
	"bytes"
	"strings"
	"sync"
)

// BufferPool manages a pool of reusable bytes.Buffer objects
// to reduce memory allocations during high-throughput operations.
type BufferPool struct {
	pool sync.Pool
}

func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put returns a buffer to the pool. Oversized buffers are dropped.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() > MaxBufferSize {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}

// StringBuilderPool manages a pool of reusable strings.Builder objects
type StringBuilderPool struct {
	pool sync.Pool
}

func NewStringBuilderPool() *StringBuilderPool {
	return &StringBuilderPool{
		pool: sync.Pool{
			New: func() any {
				sb := new(strings.Builder)
				sb.Grow(256)
				return sb
			},
		},
	}
}

func (p *StringBuilderPool) Get() *strings.Builder {
	return p.pool.Get().(*strings.Builder)
}

func (p *StringBuilderPool) Put(sb *strings.Builder) {
	if sb.Cap() > MaxBufferSize {
		return
	}
	sb.Reset()
	p.pool.Put(sb)
}

var (
	SharedBufferPool        = NewBufferPool()
	SharedStringBuilderPool = NewStringBuilderPool()
)
