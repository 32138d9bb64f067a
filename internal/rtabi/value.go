// Package rtabi is the small fixed runtime surface emitted code relies
// on: refcounted values for objects whose escape the emitter couldn't
// prove, a bump-pointer arena for transient structures, a cooperative
// scheduler (spawn/await/gather/join), and a work-stealing thread pool
// for CPU-bound tasks. Each spawned task's body runs exactly once no
// matter how many times it is awaited.
package rtabi

import "sync/atomic"

// Refcounted is embedded in any emitted value whose escape analysis left
// unproven ("value types with refcount operations for
// objects whose escape is not proven"). Retain/Release are atomic so
// values may cross worker-pool goroutine boundaries.
type Refcounted struct {
	refs int64
}

// NewRefcounted starts a value at one live reference -- its creator's.
func NewRefcounted() Refcounted { return Refcounted{refs: 1} }

func (r *Refcounted) Retain() { atomic.AddInt64(&r.refs, 1) }

// Release drops one reference and reports whether this was the last one,
// i.e. the caller must now free the value.
func (r *Refcounted) Release() bool {
	return atomic.AddInt64(&r.refs, -1) == 0
}

func (r *Refcounted) Count() int64 { return atomic.LoadInt64(&r.refs) }
