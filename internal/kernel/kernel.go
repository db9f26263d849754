// Package kernel implements the decode-dispatch SpMV kernel of spec.md
// §4.G: y ← αAx + βy, computed by decoding each partition's ctl/values
// stream in lock-step and dispatching on the current unit's pattern tag.
//
// The historical implementation JIT-compiled one decode loop per matrix,
// inlining only the patterns actually present. Spec.md §9 replaces that
// with a single static decode-dispatch kernel driven by a small
// pattern-tag switch — the switch on internal/ctl's Tag enum inside
// ctl.Decoder.Next plays the role of the "table of pattern_id →
// decoder_fn" spec.md describes, without a code generator.
package kernel

import (
	"fmt"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/part"
	"github.com/tabac/sparsex/internal/pool"
	"github.com/tabac/sparsex/internal/reorder"
)

// Numeric re-exports internal/reorder's value-type constraint so callers
// of this package never need to import internal/reorder directly.
type Numeric = reorder.Numeric

// Partition is one thread's compiled share of a tuned matrix: the
// row range it owns and the ctl/values pair internal/ctl.Build produced
// for it, plus the placement metadata internal/part.Split computed.
type Partition[V Numeric] struct {
	RowStart uint64
	NrRows   uint64
	Values   []V
	Ctl      []byte
	CPU      int
	Node     int
}

// FromPart compiles a part.Partition's element stream into a
// kernel.Partition, invoking internal/ctl.Build once per partition —
// the architecture decision recorded in DESIGN.md of splitting the
// element stream before building ctl, rather than building one global
// ctl stream and slicing it after the fact.
func FromPart[V Numeric](p part.Partition[V], catalog *ctl.Catalog, minUnitSize int, logger ctl.Logger) Partition[V] {
	values, ctlBytes := ctl.Build(p.Elements, p.Instances, catalog, minUnitSize, logger)
	return Partition[V]{
		RowStart: p.RowStart,
		NrRows:   p.NrRows,
		Values:   values,
		Ctl:      ctlBytes,
		CPU:      p.CPU,
		Node:     p.Node,
	}
}

// Matrix is a tuned CSX matrix ready for repeated SpMV calls: one compiled
// Partition per worker thread, sharing a single pattern Catalog.
type Matrix[V Numeric] struct {
	NumRows    uint64
	NumCols    uint64
	Symmetric  bool
	Catalog    *ctl.Catalog
	Partitions []Partition[V]
}

// one and zero let MatVec special-case the β pre-pass without requiring
// V to support comparison against untyped constants directly.
func one[V Numeric]() V  { return V(1) }
func zero[V Numeric]() V { return V(0) }

// MatVec computes y ← αAx + βy using p's workers, one per m.Partitions
// entry in order — p.NumWorkers() must equal len(m.Partitions).
//
// The non-symmetric path gives each worker exclusive ownership of its own
// row range of y, so no two workers ever write the same element (spec.md
// §4.G: "y is partitioned by row ranges with disjoint ownership — no
// locks needed"). β is applied with a per-row pre-pass before the decode
// loop accumulates into the now-scaled row range, implementing "β is
// applied exactly once per row... by a pre-pass when β≠1" without a
// touched-rows bitmap.
func MatVec[V Numeric](m *Matrix[V], p *pool.Pool, x, y []V, alpha, beta V) error {
	if len(m.Partitions) != p.NumWorkers() {
		return fmt.Errorf("kernel: matrix has %d partitions, pool has %d workers", len(m.Partitions), p.NumWorkers())
	}
	if m.Symmetric {
		return matVecSymmetric(m, p, x, y, alpha, beta)
	}

	p.Dispatch(func(idx int) {
		prt := m.Partitions[idx]
		yLocal := y[prt.RowStart : prt.RowStart+prt.NrRows]
		prescaleRow(yLocal, beta)
		decodePartition(prt, m.Catalog, x, yLocal, prt.RowStart, alpha)
	})
	return nil
}

// matVecSymmetric implements the "symmetric private-buffer reduction"
// variant: the matrix stores only one triangle, so a worker decoding its
// own row range also contributes to columns that belong to other
// workers' row ranges. Each worker accumulates into its own full-length
// private buffer during the decode loop — never touching the shared y —
// and the buffers are summed into y, row range by row range, after every
// worker has finished (spec.md §4.G: "private buffers are thread-owned
// during SpMV and reduced under the closing barrier").
func matVecSymmetric[V Numeric](m *Matrix[V], p *pool.Pool, x, y []V, alpha, beta V) error {
	bufs := make([][]V, len(m.Partitions))

	p.Dispatch(func(idx int) {
		bufs[idx] = make([]V, len(y))
		prt := m.Partitions[idx]
		decodeSymmetricPartition(prt, m.Catalog, x, bufs[idx], prt.RowStart, alpha)
	})

	p.Dispatch(func(idx int) {
		prt := m.Partitions[idx]
		yLocal := y[prt.RowStart : prt.RowStart+prt.NrRows]
		prescaleRow(yLocal, beta)
		for _, buf := range bufs {
			for i, v := range buf[prt.RowStart : prt.RowStart+prt.NrRows] {
				yLocal[i] += v
			}
		}
	})
	return nil
}

func prescaleRow[V Numeric](row []V, beta V) {
	if beta == one[V]() {
		return
	}
	if beta == zero[V]() {
		for i := range row {
			row[i] = zero[V]()
		}
		return
	}
	for i := range row {
		row[i] *= beta
	}
}

// decodePartition runs part's decode loop, writing αAx contributions
// directly into yLocal (already β-prescaled). The decoder's rows are
// already partition-local (row 0 is rowStart), so they index yLocal
// as they are.
func decodePartition[V Numeric](prt Partition[V], catalog *ctl.Catalog, x []V, yLocal []V, rowStart uint64, alpha V) {
	dec := ctl.NewDecoder(prt.Ctl, prt.Values, catalog)
	for {
		unit, ok := dec.Next()
		if !ok {
			break
		}
		for k := range unit.Rows {
			r := unit.Rows[k]
			c := unit.Cols[k]
			yLocal[r] += alpha * unit.Values[k] * x[c]
		}
	}
}

// decodeSymmetricPartition is decodePartition's mirror-contribution
// variant: every off-diagonal unit entry contributes to both (row, col)
// and its transpose (col, row), since the stored triangle implies the
// other by symmetry (spec.md §4.G invariant 5).
func decodeSymmetricPartition[V Numeric](prt Partition[V], catalog *ctl.Catalog, x []V, buf []V, rowStart uint64, alpha V) {
	dec := ctl.NewDecoder(prt.Ctl, prt.Values, catalog)
	for {
		unit, ok := dec.Next()
		if !ok {
			break
		}
		for k := range unit.Rows {
			r := unit.Rows[k] + rowStart // decoder rows are partition-local
			c := unit.Cols[k]
			contrib := alpha * unit.Values[k]
			buf[r] += contrib * x[c]
			if r != c {
				buf[c] += contrib * x[r]
			}
		}
	}
}
