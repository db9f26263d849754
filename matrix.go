package sparsex

import (
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tabac/sparsex/internal/access"
	"github.com/tabac/sparsex/internal/csxio"
	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/drle"
	"github.com/tabac/sparsex/internal/kernel"
	"github.com/tabac/sparsex/internal/numaalloc"
	"github.com/tabac/sparsex/internal/part"
	"github.com/tabac/sparsex/internal/pool"
	"github.com/tabac/sparsex/internal/reorder"
)

// Matrix is a tuned CSX matrix: the decode-ready partitions, the worker
// pool pinned to them, and the row permutation (if any) consumed at tune
// time — spec.md §1's "consuming an externally produced permutation" is
// the only reordering this library performs; it never computes one.
type Matrix[V reorder.Numeric] struct {
	kernel      kernel.Matrix[V]
	accessor    *access.Accessor[V]
	pool        *pool.Pool
	permutation []uint64 // permutation[oldRow] = newRow, or nil
}

func defaultOrders() []reorder.Order {
	return []reorder.Order{
		reorder.Row,
		reorder.Col,
		reorder.Diag,
		reorder.AntiDiag,
		reorder.BlockR(4),
		reorder.BlockC(4),
	}
}

// MatTune builds a tuned Matrix from input. reorderPerm, if non-nil, is
// an externally produced row permutation (length input.NumRows,
// perm[oldRow] = newRow) applied before analysis — spec.md §1's
// Non-goal is computing such a permutation, not consuming one.
func MatTune[V reorder.Numeric](input *Input[V], c Config, reorderPerm []uint64) (*Matrix[V], error) {
	if reorderPerm != nil && uint64(len(reorderPerm)) != input.NumRows {
		return nil, newErr(ArgInvalid, "reorderPerm length must equal NumRows", nil)
	}

	elems := input.Elements
	if reorderPerm != nil {
		elems = make([]reorder.Element[V], len(input.Elements))
		for i, e := range input.Elements {
			elems[i] = reorder.Element[V]{Row: reorderPerm[e.Row], Col: e.Col, Value: e.Value}
		}
	}

	affinity := c.Affinity
	if len(affinity) == 0 {
		n := c.NrThreads
		if n == 0 {
			n = runtime.NumCPU()
		}
		affinity = make([]int, n)
		for i := range affinity {
			affinity[i] = i
		}
	}

	orders := c.XformConf
	if len(orders) == 0 {
		orders = defaultOrders()
	}

	drleCfg := drle.Config{Orders: orders, MinScorePerNNZ: drle.DefaultMinScorePerNNZ}
	result := drle.Analyze(elems, drleCfg)

	parts := part.Split(result.Elements, result.Instances, input.NumRows, affinity, numaalloc.NodeOf)

	compiled := make([]kernel.Partition[V], len(parts))
	var g errgroup.Group
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			compiled[i] = kernel.FromPart(p, result.Catalog, c.MinUnitSize, loggerAdapter{c.logger()})
			return nil
		})
	}
	_ = g.Wait() // FromPart never returns an error; Wait always succeeds

	m := &Matrix[V]{
		kernel: kernel.Matrix[V]{
			NumRows:    input.NumRows,
			NumCols:    input.NumCols,
			Symmetric:  c.MatrixSymmetric,
			Catalog:    result.Catalog,
			Partitions: compiled,
		},
		pool:        pool.New(affinity),
		permutation: reorderPerm,
	}
	m.accessor = access.New(toAccessMatrix(&m.kernel))
	return m, nil
}

// loggerAdapter bridges sparsex.Logger to every internal package's own
// structurally-identical Logger interface, so none of them needs to
// import this package.
type loggerAdapter struct{ l Logger }

func (a loggerAdapter) Warnf(format string, args ...any) { a.l.Warnf(format, args...) }

func toAccessMatrix[V reorder.Numeric](m *kernel.Matrix[V]) *access.Matrix[V] {
	am := &access.Matrix[V]{Catalog: m.Catalog, Partitions: make([]access.Partition[V], len(m.Partitions))}
	for i, p := range m.Partitions {
		am.Partitions[i] = access.Partition[V]{RowStart: p.RowStart, NrRows: p.NrRows, Values: p.Values, Ctl: p.Ctl}
	}
	return am
}

// MatGetEntry returns the stored value at (row, col), or (_, false) if
// no explicit entry exists there.
func (m *Matrix[V]) MatGetEntry(row, col uint64) (V, bool) {
	if m.permutation != nil {
		row = m.permutation[row]
	}
	return m.accessor.Get(row, col)
}

// MatSetEntry overwrites the value at (row, col). Insertion of a new
// non-zero is not supported; on a miss this logs the EntryNotSet
// warning and returns an EntryNotFound Error (spec.md §4.H, §7 — the
// warning is informational and does not replace the error return: §7's
// "warnings never flip a success into a failure" only says a warning by
// itself is never fatal on its own, not that a genuine failure here is
// downgraded to success).
func (m *Matrix[V]) MatSetEntry(row, col uint64, v V, logger Logger) error {
	if row >= m.kernel.NumRows || col >= m.kernel.NumCols {
		return newErr(OutOfBounds, "MatSetEntry", nil)
	}
	if m.permutation != nil {
		row = m.permutation[row]
	}
	if err := m.accessor.Set(row, col, v); err != nil {
		if logger != nil {
			logger.Warnf("sparsex: EntryNotSet: no explicit entry at (%d, %d)", row, col)
		}
		return newErr(EntryNotFound, "MatSetEntry", err)
	}
	return nil
}

// MatVec computes y ← αAx + βy using m's worker pool, matching spec.md
// §6's matvec_kernel. len(x) must equal m.NumCols and len(y) must equal
// m.NumRows.
func MatVec[V reorder.Numeric](alpha V, m *Matrix[V], x []V, beta V, y []V) error {
	if uint64(len(x)) != m.kernel.NumCols {
		return newErr(DimMismatch, "MatVec: len(x) must equal NumCols", nil)
	}
	if uint64(len(y)) != m.kernel.NumRows {
		return newErr(DimMismatch, "MatVec: len(y) must equal NumRows", nil)
	}
	if err := kernel.MatVec(&m.kernel, m.pool, x, y, alpha, beta); err != nil {
		return newErr(TunedMat, "MatVec", err)
	}
	return nil
}

// NumPartitions returns the number of thread partitions m was tuned
// with.
func (m *Matrix[V]) NumPartitions() int { return len(m.kernel.Partitions) }

// RowStart returns partition i's first row.
func (m *Matrix[V]) RowStart(i int) uint64 { return m.kernel.Partitions[i].RowStart }

// RowEnd returns partition i's one-past-last row.
func (m *Matrix[V]) RowEnd(i int) uint64 {
	p := m.kernel.Partitions[i]
	return p.RowStart + p.NrRows
}

// CPU returns the CPU partition i's worker is pinned to.
func (m *Matrix[V]) CPU(i int) int { return m.kernel.Partitions[i].CPU }

// Node returns the NUMA node partition i's worker is pinned to.
func (m *Matrix[V]) Node(i int) int { return m.kernel.Partitions[i].Node }

// Close shuts down m's worker pool. A Matrix must not be used after
// Close.
func (m *Matrix[V]) Close() { m.pool.Shutdown() }

// MatSave persists m to path, or to Config.CsxFile if path is empty
// (logging the CsxFile warning when that fallback is used, per
// spec.md §7).
func MatSave[V reorder.Numeric](m *Matrix[V], path string, c Config) error {
	if path == "" {
		path = c.CsxFile
		c.logger().Warnf("sparsex: CsxFile: save path empty, falling back to Config.CsxFile %q", path)
	}
	if path == "" {
		return newErr(FileIo, "MatSave: no destination path given", nil)
	}

	f := &csxio.File[V]{
		NumRows:   m.kernel.NumRows,
		NumCols:   m.kernel.NumCols,
		Symmetric: m.kernel.Symmetric,
		Catalog:   m.kernel.Catalog,
	}
	for _, p := range m.kernel.Partitions {
		f.Threads = append(f.Threads, csxio.ThreadHeader{
			RowStart: p.RowStart,
			NrRows:   p.NrRows,
			NrNzeros: uint64(len(p.Values)),
			CtlLen:   uint64(len(p.Ctl)),
			Node:     int32(p.Node),
		})
		f.Values = append(f.Values, p.Values)
		f.Ctl = append(f.Ctl, p.Ctl)
		f.Nnz += uint64(len(p.Values))
	}
	f.Permutation = m.permutation

	file, err := os.Create(path)
	if err != nil {
		return newErr(FileIo, "MatSave", err)
	}
	defer file.Close()

	if err := csxio.Save(file, f); err != nil {
		return newErr(FileIo, "MatSave", err)
	}
	return nil
}

// MatRestore loads a Matrix previously written by MatSave. affinity, if
// non-nil, re-pins every partition's worker and re-maps its NUMA node
// for the current host (spec.md §6: "Re-loading on a host with a
// different NUMA topology is allowed; nodes are re-mapped via
// AFFINITY"); its length must equal the file's thread count.
func MatRestore[V reorder.Numeric](path string, affinity []int) (*Matrix[V], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, newErr(FileIo, "MatRestore", err)
	}
	defer file.Close()

	f, err := csxio.Load[V](file)
	if err != nil {
		return nil, newErr(FileIo, "MatRestore", err)
	}
	if affinity != nil && len(affinity) != len(f.Threads) {
		return nil, newErr(ArgInvalid, "MatRestore: affinity length must equal the file's thread count", nil)
	}

	catalog := f.Catalog
	if catalog == nil {
		catalog = ctl.NewCatalog()
	}
	compiled := make([]kernel.Partition[V], len(f.Threads))
	for i, th := range f.Threads {
		cpu := -1
		node := int(th.Node)
		if affinity != nil {
			cpu = affinity[i]
			node = numaalloc.NodeOf(cpu)
		}
		compiled[i] = kernel.Partition[V]{
			RowStart: th.RowStart,
			NrRows:   th.NrRows,
			Values:   f.Values[i],
			Ctl:      f.Ctl[i],
			CPU:      cpu,
			Node:     node,
		}
	}

	poolAffinity := affinity
	if poolAffinity == nil {
		poolAffinity = make([]int, len(f.Threads))
		for i := range poolAffinity {
			poolAffinity[i] = -1
		}
	}

	m := &Matrix[V]{
		kernel: kernel.Matrix[V]{
			NumRows:    f.NumRows,
			NumCols:    f.NumCols,
			Symmetric:  f.Symmetric,
			Catalog:    catalog,
			Partitions: compiled,
		},
		pool:        pool.New(poolAffinity),
		permutation: f.Permutation,
	}
	m.accessor = access.New(toAccessMatrix(&m.kernel))
	return m, nil
}
