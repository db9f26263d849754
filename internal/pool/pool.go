// Package pool implements the fixed, long-lived, CPU-pinned worker pool of
// spec.md §4.F. Grounded on the teacher's
// hwy/contrib/workerpool/workerpool.go persistent-goroutine design
// (workers spawned once at New, parked on a channel/condition between
// calls, reused across every dispatch instead of spawned per call), but
// generalized from that package's channel-of-closures dispatch to the
// spec's shared *work descriptor* plus a two-barrier-crossing protocol:
// the opening crossing releases workers to read the descriptor, the
// closing crossing is how the caller learns every worker finished.
package pool

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/tabac/sparsex/internal/barrier"
)

// WorkFn is the per-partition unit of work a Dispatch call runs on every
// worker, keyed by worker index (0 is always run on the calling
// goroutine — spec.md §4.F: "the main thread also executes partition 0's
// work between the two barriers").
type WorkFn func(workerIdx int)

// Pool is a fixed-size set of workers pinned to the CPUs in affinity[1:]
// (affinity[0]'s CPU is the caller's own, pinned by PinCurrentThread if
// the caller wants the same guarantee). The zero value is not usable;
// construct with New.
type Pool struct {
	affinity []int
	barrier  *barrier.Barrier
	fn       atomic.Pointer[WorkFn]
	sense    []bool
	terminate atomic.Bool
}

// New spawns len(affinity)-1 persistent worker goroutines, one per
// affinity[1:] entry, and returns a Pool ready to Dispatch work. affinity[0]
// is reserved for the caller (spec.md §4.F); New does not pin the calling
// goroutine itself — call PinCurrentThread if that pinning is required.
func New(affinity []int) *Pool {
	if len(affinity) == 0 {
		panic("pool: affinity must name at least one partition")
	}
	p := &Pool{
		affinity: affinity,
		barrier:  barrier.New(len(affinity), barrier.DefaultTimeout),
		sense:    make([]bool, len(affinity)),
	}
	for w := 1; w < len(affinity); w++ {
		go p.workerLoop(w)
	}
	return p
}

// NumWorkers returns the partition count this pool dispatches over,
// including the caller's own partition 0.
func (p *Pool) NumWorkers() int { return len(p.affinity) }

// PinCurrentThread locks the calling goroutine to its OS thread and sets
// its CPU affinity to affinity[0], matching what each spawned worker does
// for its own partition.
func (p *Pool) PinCurrentThread() error {
	runtime.LockOSThread()
	return pinTo(p.affinity[0])
}

// Dispatch publishes fn as the shared work descriptor and runs it across
// every partition: workers pick it up at the opening barrier crossing,
// the caller runs fn(0) directly, and the closing crossing is how Dispatch
// knows every worker has returned before it returns itself.
func (p *Pool) Dispatch(fn WorkFn) {
	p.fn.Store(&fn)
	p.barrier.Wait(&p.sense[0])
	fn(0)
	p.barrier.Wait(&p.sense[0])
}

// Shutdown sets the terminate flag and performs one final barrier
// crossing so every worker observes it and exits; Shutdown must be called
// at most once and no Dispatch may race with it (spec.md §4.F's
// cancellation note: "library shutdown sets a terminate flag, does a
// final barrier crossing, and joins").
func (p *Pool) Shutdown() {
	p.terminate.Store(true)
	p.barrier.Wait(&p.sense[0])
}

func (p *Pool) workerLoop(idx int) {
	runtime.LockOSThread()
	pinTo(p.affinity[idx]) // best-effort; affinity is a placement hint, not a correctness requirement

	sense := false
	for {
		p.barrier.Wait(&sense)
		if p.terminate.Load() {
			return
		}
		fn := p.fn.Load()
		(*fn)(idx)
		p.barrier.Wait(&sense)
	}
}

func pinTo(cpu int) error {
	if cpu < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
