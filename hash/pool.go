package hash

import (
	stdhash "hash"
	"sync"
)

// Pool amortizes allocations of hashers created by a single Func.
type Pool struct {
	pool sync.Pool
}

// NewPool creates a hasher pool for fn.
func NewPool(fn Func) *Pool {
	return &Pool{pool: sync.Pool{
		New: func() any {
			return fn()
		},
	}}
}

// Get will get a hasher from the pool.
// It may or may not allocate a new one.
func (p *Pool) Get() stdhash.Hash {
	return p.pool.Get().(stdhash.Hash)
}

// Put resets the hasher and returns it back to the pool.
func (p *Pool) Put(h stdhash.Hash) {
	h.Reset()
	p.pool.Put(h)
}
