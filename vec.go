package sparsex

import (
	"math/rand"

	"github.com/tabac/sparsex/internal/numaalloc"
	"github.com/tabac/sparsex/internal/reorder"
)

// Vector is a dense vector bound to a Matrix's partitioning: a flat value
// slice plus, when built with VecCreateInterleaved, the per-partition
// byte ranges that were NUMA-bound (spec.md §6's vec_create family, §4.D
// "Dense vectors bound to a partition have their pages bound to the
// partition's node").
type Vector[V reorder.Numeric] struct {
	Values  []V
	Regions []numaalloc.Region // nil unless built via VecCreateInterleaved
}

// VecCreate allocates a zeroed Vector of length size, matching spec.md
// §6's vec_create.
func VecCreate[V reorder.Numeric](size int) *Vector[V] {
	return &Vector[V]{Values: make([]V, size)}
}

// VecCreateFromBuff wraps an existing slice as a Vector without copying,
// matching spec.md §6's vec_create_from_buff.
func VecCreateFromBuff[V reorder.Numeric](buf []V) *Vector[V] {
	return &Vector[V]{Values: buf}
}

// VecCreateRandom allocates a Vector of length size filled with
// uniform(0,1) values, matching spec.md §6's vec_create_random. rng is
// optional; nil uses the package-level default source.
func VecCreateRandom[V reorder.Numeric](size int, rng *rand.Rand) *Vector[V] {
	v := make([]V, size)
	for i := range v {
		if rng != nil {
			v[i] = V(rng.Float64())
		} else {
			v[i] = V(rand.Float64())
		}
	}
	return &Vector[V]{Values: v}
}

// VecCreateInterleaved allocates a single contiguous Vector of length size
// whose backing pages are bound per-partition to m's NUMA nodes, per
// spec.md §4.D: "a single contiguous allocation whose pages are bound per
// partition; partition byte boundaries are shifted outward to the nearest
// page boundary, and each partition's effective length is reported back
// so SpMV indexes stay consistent." The reported Regions' ElemLength
// values sum to >= size; callers index by Region.ElemOffset, not by a
// fixed per-partition stride.
func VecCreateInterleaved[V reorder.Numeric](size int, m *Matrix[V]) *Vector[V] {
	n := m.NumPartitions()
	counts := make([]int, n)
	nodes := make([]int, n)
	base := size / n
	for i := range counts {
		counts[i] = base
		nodes[i] = m.Node(i)
	}
	counts[n-1] += size - base*n // remainder goes to the last partition

	var elemSize int
	switch any(V(0)).(type) {
	case float32:
		elemSize = 4
	default:
		elemSize = 8
	}

	regions := numaalloc.InterleavedLayout(counts, nodes, elemSize, 4096)
	total := 0
	for _, r := range regions {
		total += r.ElemLength
	}

	values := make([]V, total)
	buf := unsafeBytes(values)
	for _, r := range regions {
		if r.Node < 0 {
			continue
		}
		lo, hi := r.ByteOffset, r.ByteOffset+r.ByteLength
		if hi > len(buf) {
			hi = len(buf)
		}
		if lo >= hi {
			continue
		}
		_ = numaalloc.BindPages(buf[lo:hi], r.Node) // best-effort, spec.md §4.D fallback
	}

	return &Vector[V]{Values: values, Regions: regions}
}
