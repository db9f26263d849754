// Package barrier implements the sense-reversing centralized barrier of
// spec.md §4.E, grounded almost line for line on
// original_source/src/internals/Barrier.cpp's centralized_barrier: an
// atomic counter decremented to zero by the last arriving thread, which
// flips a global sense flag and wakes every waiter.
//
// Go has no portable futex syscall; the park/wake-all step that C
// implements with futex_wait/futex_wake is implemented here with a
// sync.Cond guarded by a sync.Mutex, the idiomatic Go substitute.
package barrier

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultTimeout is the number of spin iterations a thread busy-waits
// before parking on the condition variable, mirroring BARRIER_TIMEOUT in
// Barrier.cpp. Purely an energy/latency tradeoff; correctness never
// depends on it (spec.md §5).
const DefaultTimeout = 1000

// Barrier is a reusable, fixed-size rendezvous point for n goroutines. The
// zero value is not usable; construct with New.
type Barrier struct {
	n       int32
	timeout int
	count   atomic.Int32
	sense   atomic.Int32

	mu   sync.Mutex
	cond *sync.Cond
}

// New returns a Barrier for exactly n participants.
func New(n int, timeout int) *Barrier {
	if n <= 0 {
		panic("barrier: n must be positive")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	b := &Barrier{n: int32(n), timeout: timeout}
	b.count.Store(int32(n))
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the calling goroutine until all n participants have called
// Wait since the barrier's counter last reached zero. localSense is the
// caller's own sense bit, toggled each crossing; pass the same *bool
// across repeated crossings from the same goroutine (spec.md §4.E step 1:
// "each thread flips its local sense").
func (b *Barrier) Wait(localSense *bool) {
	*localSense = !*localSense
	want := int32(0)
	if *localSense {
		want = 1
	}

	if b.count.Add(-1) == 0 {
		b.count.Store(b.n)
		b.mu.Lock()
		b.sense.Store(want)
		b.mu.Unlock()
		b.cond.Broadcast() // futex wake-all, level-triggered
		return
	}

	for i := 0; i < b.timeout; i++ {
		if b.sense.Load() == want {
			return
		}
		runtime.Gosched()
	}

	b.mu.Lock()
	for b.sense.Load() != want {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
