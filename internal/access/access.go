// Package access implements the random-entry Get/Set accessor of spec.md
// §4.H: point lookups and point overwrites into a tuned CSX matrix,
// without ever touching the thread pool or the SpMV hot path.
//
// Grounded on the decode loop internal/ctl.Decoder already provides;
// the only new behavior here is the "one cursor per row is memoized on
// first access" caching spec.md calls for, since a ctl stream is
// forward-only and re-decoding from the start on every Get would make
// random access quadratic in the matrix's row count.
package access

import (
	"errors"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/reorder"
)

// ErrNotFound is returned by Set when (row, col) has no explicit entry —
// spec.md §4.H's "insertion of new non-zeros is not supported".
var ErrNotFound = errors.New("access: no explicit entry at (row, col)")

// Matrix is the subset of a tuned matrix's shape Accessor needs: one
// compiled partition per thread plus the shared pattern catalog. Defined
// locally (rather than importing internal/kernel.Matrix) to avoid
// coupling this package to the kernel's pool/dispatch machinery it never
// uses.
type Matrix[V reorder.Numeric] struct {
	Catalog    *ctl.Catalog
	Partitions []Partition[V]
}

// Partition is the row range and compiled ctl/values a single thread
// owns, the fields Accessor actually reads.
type Partition[V reorder.Numeric] struct {
	RowStart uint64
	NrRows   uint64
	Values   []V
	Ctl      []byte
}

// Accessor answers point Get/Set queries against a tuned Matrix, caching
// one forward-only decode cursor and its discovered (row, col) → value
// pointers per partition.
type Accessor[V reorder.Numeric] struct {
	matrix *Matrix[V]
	caches []*rowCache[V]
}

// New returns an Accessor over m. m must not be mutated structurally
// (partitions added/removed) for the Accessor's lifetime; overwriting
// values through Set is fine, since that is exactly what it's for.
func New[V reorder.Numeric](m *Matrix[V]) *Accessor[V] {
	return &Accessor[V]{
		matrix: m,
		caches: make([]*rowCache[V], len(m.Partitions)),
	}
}

// Get returns the stored value at (row, col) and true if an explicit
// entry exists there, or the zero value and false otherwise — spec.md
// §4.H: "Returns false if no explicit entry at (row, col) exists."
func (a *Accessor[V]) Get(row, col uint64) (V, bool) {
	var zero V
	pi, local, ok := a.locate(row)
	if !ok {
		return zero, false
	}
	c := a.cacheFor(pi)
	c.ensure()

	cols, ok := c.rows[local]
	if !ok {
		return zero, false
	}
	ptr, ok := cols[col]
	if !ok {
		return zero, false
	}
	return *ptr, true
}

// Set overwrites the value stored at (row, col). Insertion of a new
// non-zero is not supported — spec.md §4.H: "would force a retune" — and
// Set returns ErrNotFound in that case, leaving the matrix unchanged.
func (a *Accessor[V]) Set(row, col uint64, v V) error {
	pi, local, ok := a.locate(row)
	if !ok {
		return ErrNotFound
	}
	c := a.cacheFor(pi)
	c.ensure()

	cols, ok := c.rows[local]
	if !ok {
		return ErrNotFound
	}
	ptr, ok := cols[col]
	if !ok {
		return ErrNotFound
	}
	*ptr = v
	return nil
}

// locate finds the partition owning row and returns its index along with
// row expressed relative to that partition's RowStart (the local row
// index internal/ctl.Decoder works in).
func (a *Accessor[V]) locate(row uint64) (partIdx int, local uint64, ok bool) {
	for i, p := range a.matrix.Partitions {
		if row >= p.RowStart && row < p.RowStart+p.NrRows {
			return i, row - p.RowStart, true
		}
	}
	return 0, 0, false
}

func (a *Accessor[V]) cacheFor(partIdx int) *rowCache[V] {
	if a.caches[partIdx] == nil {
		p := a.matrix.Partitions[partIdx]
		a.caches[partIdx] = &rowCache[V]{
			dec:  ctl.NewDecoder(p.Ctl, p.Values, a.matrix.Catalog),
			rows: make(map[uint64]map[uint64]*V),
		}
	}
	return a.caches[partIdx]
}

// rowCache memoizes a single forward-only Decoder's output so repeated
// Get/Set calls never touch the Decoder again after the first one
// (spec.md §4.H: "cached: one cursor per row is memoized on first
// access"). Entries are never evicted: the (row, col) → *V pointers it
// stores alias the partition's own Values slice, so a Set through one
// of them is visible to the next SpMV call without any further
// bookkeeping.
type rowCache[V reorder.Numeric] struct {
	dec  *ctl.Decoder[V]
	rows map[uint64]map[uint64]*V
	done bool
}

// ensure decodes the rest of the stream, if it hasn't been already. A
// Diag/AntiDiag unit restores the cursor to its baseRow afterwards
// (spec.md §4.G), so a later unit can anchor at a row an earlier unit
// already decoded past — there is no row a partial decode can ever call
// final, so ensure always drains the whole stream on first access.
func (c *rowCache[V]) ensure() {
	if c.done {
		return
	}
	c.done = true
	for {
		unit, ok := c.dec.Next()
		if !ok {
			return
		}
		for k := range unit.Rows {
			r := unit.Rows[k]
			cols, exists := c.rows[r]
			if !exists {
				cols = make(map[uint64]*V)
				c.rows[r] = cols
			}
			cols[unit.Cols[k]] = &unit.Values[k]
		}
	}
}
