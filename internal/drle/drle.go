// Package drle implements the substructure-detection analyzer of
// spec.md §4.B: it scores each candidate traversal/pattern combination by
// expected byte savings over the delta-8 baseline and, round by round,
// tags the best-scoring combination among the still-unencoded elements
// until none clears the threshold, before the CSX builder (internal/ctl)
// takes over.
package drle

import (
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/reorder"
)

// Config controls analyzer behavior; it is the DRLE-relevant subset of the
// library-wide Config described in spec.md §6.
type Config struct {
	// Orders lists the traversals DRLE may try (spec.md's XFORM_CONF).
	Orders []reorder.Order
	// MinScorePerNNZ is the minimum average savings, in bytes per
	// non-zero, a winning pattern must clear (spec.md §4.B default: "at
	// least 4 bytes per 64 non-zeros", i.e. 4.0/64.0).
	MinScorePerNNZ float64
}

// DefaultMinScorePerNNZ is spec.md §4.B's default min_score threshold.
const DefaultMinScorePerNNZ = 4.0 / 64.0

// Instance is ctl.Instance: one tagged occurrence of a pattern, addressed
// by the ascending row-major indices of its member elements into
// Result.Elements. The type lives in internal/ctl so Builder can consume it
// without an import cycle; Instances never overlap (spec.md §4.B: "A chosen
// pattern never overlaps a previously chosen one on the same element").
type Instance = ctl.Instance

// Result is the outcome of one Analyze call: Elements is always the
// canonical row-major element stream (the order the builder walks to
// produce ctl), and Instances tags the subsets of it that the winning
// traversal/pattern combination found, addressed by row-major index.
// Elements not covered by any Instance are left for the builder's default
// per-row delta-run encoding.
type Result[V reorder.Numeric] struct {
	Order     reorder.Order
	Elements  []reorder.Element[V]
	Instances []Instance
	Catalog   *ctl.Catalog
}

type candidate[V reorder.Numeric] struct {
	order     reorder.Order
	instances []Instance
	coverage  int
	score     float64
	kind      ctl.Kind
}

// Analyze runs the DRLE selection rule of spec.md §4.B over elems to a
// fixed point: each round, every order in cfg.Orders is scored in
// parallel (via errgroup.Group — each traversal reorders and scans its
// own copy of the still-unencoded elements, read-only, so the fan-out
// never needs to synchronize beyond the final join) restricted to
// elements no earlier round has already tagged, and the single
// best-scoring order/kind pair is chosen (ties broken by higher
// coverage, then lower δ, then lexicographic pattern key). A winning
// pattern whose score clears cfg.MinScorePerNNZ × len(elems) has its
// elements marked encoded and the round repeats; the loop stops the
// first round no pattern clears the threshold (spec.md §4.B: "Iterate...
// stop when no pattern scores above min_score"). The returned Result
// always carries the Row-ordered elements — Instances addresses them by
// that canonical row-major index regardless of which orders won along
// the way — so the builder can walk one consistent sequence.
func Analyze[V reorder.Numeric](elems []reorder.Element[V], cfg Config) Result[V] {
	catalog := ctl.NewCatalog()

	if len(elems) == 0 {
		return Result[V]{Order: reorder.Row, Elements: nil, Catalog: catalog}
	}

	orders := cfg.Orders
	if len(orders) == 0 {
		orders = []reorder.Order{reorder.Row}
	}

	rowMajor := reorder.Transform(elems, reorder.Row)

	threshold := cfg.MinScorePerNNZ
	if threshold == 0 {
		threshold = DefaultMinScorePerNNZ
	}
	minAcceptable := threshold * float64(len(elems))

	encoded := make([]bool, len(rowMajor))
	winningOrder := reorder.Row
	var allInstances []Instance

	for {
		if allEncoded(encoded) {
			break
		}

		candidates := make([]candidate[V], len(orders))
		var g errgroup.Group
		for i, ord := range orders {
			i, ord := i, ord
			g.Go(func() error {
				candidates[i] = scoreOrder(rowMajor, encoded, ord)
				return nil
			})
		}
		_ = g.Wait() // scoreOrder never returns an error; Wait always succeeds

		best := selectBest(candidates)
		if best.score <= minAcceptable || len(best.instances) == 0 {
			break
		}

		winningOrder = best.order
		allInstances = append(allInstances, best.instances...)
		for _, inst := range best.instances {
			for _, idx := range inst.Indices {
				encoded[idx] = true
			}
		}
	}

	res := Result[V]{Order: winningOrder, Elements: rowMajor, Catalog: catalog}
	if len(allInstances) > 0 {
		res.Instances = allInstances
		for _, inst := range res.Instances {
			catalog.IDFor(inst.Kind)
		}
	}
	return res
}

func allEncoded(encoded []bool) bool {
	for _, e := range encoded {
		if !e {
			return false
		}
	}
	return true
}

// selectBest applies spec.md §4.B's selection rule across the scored
// candidates: strictly-greater score wins; ties break by higher coverage,
// then lower δ, then lexicographic pattern key.
func selectBest[V reorder.Numeric](candidates []candidate[V]) candidate[V] {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best
}

func better[V reorder.Numeric](a, b candidate[V]) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.coverage != b.coverage {
		return a.coverage > b.coverage
	}
	if a.kind.Delta != b.kind.Delta {
		return a.kind.Delta < b.kind.Delta
	}
	return a.kind.Key() < b.kind.Key()
}

// scoreOrder computes the traversal permutation of rowMajor into o,
// restricted to the elements encoded marks false, and finds the best
// single pattern kind detectable along it (block detection for block
// orders, diagonal run detection for diag/anti-diag orders; row/col
// orders never propose a non-baseline pattern since CSRDU's default
// per-row delta encoding already handles them optimally). Detected
// instances are tagged with row-major indices into rowMajor, so the
// result is directly usable against the canonical element order
// regardless of which order won.
func scoreOrder[V reorder.Numeric](rowMajor []reorder.Element[V], encoded []bool, o reorder.Order) candidate[V] {
	var instances []Instance
	switch {
	case isBlockOrder(o):
		perm := restrictedPermutation(rowMajor, encoded, o)
		instances = findBlocks(rowMajor, perm, blockSize(o))
	case isDiagOrder(o):
		perm := restrictedPermutation(rowMajor, encoded, o)
		instances = findDiagRuns(rowMajor, perm, ctl.TagDiag)
	case isAntiDiagOrder(o):
		perm := restrictedPermutation(rowMajor, encoded, o)
		instances = findDiagRuns(rowMajor, perm, ctl.TagAntiDiag)
	}

	if len(instances) == 0 {
		return candidate[V]{order: o}
	}

	byKind := lo.GroupBy(instances, func(i Instance) string { return i.Kind.Key() })
	type scored struct {
		kind      ctl.Kind
		instances []Instance
		coverage  int
		score     float64
	}
	var scoredKinds []scored
	for _, group := range byKind {
		coverage := 0
		score := 0.0
		for _, inst := range group {
			n := len(inst.Indices)
			coverage += n
			baseline := baselineBytesFor(inst.Kind, n)
			patBytes := unitBytesFor(inst.Kind, n)
			score += float64(baseline - patBytes)
		}
		scoredKinds = append(scoredKinds, scored{kind: group[0].Kind, instances: group, coverage: coverage, score: score})
	}
	sort.Slice(scoredKinds, func(i, j int) bool { return scoredKinds[i].score > scoredKinds[j].score })
	top := scoredKinds[0]

	return candidate[V]{
		order:     o,
		instances: top.instances,
		coverage:  top.coverage,
		score:     top.score,
		kind:      top.kind,
	}
}

// unitHeaderBytes is the per-unit overhead (flag byte + size byte,
// ignoring the column varint, which both the baseline and the pattern pay
// once anyway) that a standalone delta-8 unit for a single element costs.
const unitHeaderBytes = 2

// unitBytesFor returns the total ctl bytes one combined pattern unit of
// kind costs for n elements: the header plus the body internal/ctl.Kind's
// BaselineBytes already computes.
func unitBytesFor(kind ctl.Kind, n int) int {
	return unitHeaderBytes + kind.BaselineBytes(n)
}

// baselineBytesFor estimates the cost of encoding n elements without the
// given pattern, i.e. via the builder's ordinary per-row delta-8 fallback.
// Block and same-row delta patterns would still collapse into a single
// unit per row in the fallback (so only the body-width difference
// matters, per spec.md §4.B's "byte savings versus the baseline delta-8
// encoding"). Diag/AntiDiag instances are the one case where the pattern
// merges what would otherwise be n separate single-element units — one
// per distinct row the diagonal crosses — into one multi-row unit, so
// their real baseline also pays n-1 extra unit headers.
func baselineBytesFor(kind ctl.Kind, n int) int {
	baseline := unitHeaderBytes + ctl.DeltaKind(ctl.Width8).BaselineBytes(n)
	if kind.Tag == ctl.TagDiag || kind.Tag == ctl.TagAntiDiag {
		baseline += (n - 1) * unitHeaderBytes
	}
	return baseline
}

// restrictedPermutation returns o's full traversal permutation over
// rowMajor with every index encoded already marks true filtered out,
// preserving relative order — spec.md §4.B's "re-run the analyzer
// restricted to unencoded elements".
func restrictedPermutation[V reorder.Numeric](rowMajor []reorder.Element[V], encoded []bool, o reorder.Order) []int {
	full := reorder.Permutation(rowMajor, o)
	out := make([]int, 0, len(full))
	for _, idx := range full {
		if !encoded[idx] {
			out = append(out, idx)
		}
	}
	return out
}

func isBlockOrder(o reorder.Order) bool {
	s := o.String()
	return s == "blockr" || s == "blockc"
}

func isDiagOrder(o reorder.Order) bool  { return o.String() == "diag" }
func isAntiDiagOrder(o reorder.Order) bool { return o.String() == "antidiag" }

// blockSize returns the square block size of a BlockR/BlockC order: the
// reorder package keeps the block dimension private, so drle reads it
// through the exported Order.BlockSize accessor.
func blockSize(o reorder.Order) int { return o.BlockSize() }
