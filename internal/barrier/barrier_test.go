package barrier_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tabac/sparsex/internal/barrier"
)

// TestBarrierRendezvous checks spec.md §8 invariant 7: with n threads
// executing N crossings, every thread completes exactly N crossings, and
// no thread observes phase k+1 work before every thread has finished
// phase k.
func TestBarrierRendezvous(t *testing.T) {
	const n = 8
	const rounds = 200

	b := barrier.New(n, 50)
	var phase atomic.Int32
	var mismatches atomic.Int32

	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sense := false
			for r := 0; r < rounds; r++ {
				b.Wait(&sense)
				got := phase.Load()
				if want := int32(n * r); got != want {
					mismatches.Add(1)
				}
				b.Wait(&sense)
				phase.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := mismatches.Load(); got != 0 {
		t.Errorf("%d goroutine(s) observed the wrong phase at a barrier crossing", got)
	}
	if got := phase.Load(); got != n*rounds {
		t.Errorf("phase ended at %d, want %d (every goroutine advanced it once per round)", got, n*rounds)
	}
}

func TestBarrierSingleParticipant(t *testing.T) {
	b := barrier.New(1, 10)
	sense := false
	for i := 0; i < 5; i++ {
		b.Wait(&sense) // must never block with only one participant
	}
}

func TestBarrierPanicsOnNonPositiveN(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(0, ...) should panic")
		}
	}()
	barrier.New(0, 10)
}
