package drle

import (
	"sort"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/reorder"
)

// findBlocks scans elems in the block order described by perm (perm[i] is
// the row-major index of elems visited at reordered position i) for maximal
// runs that form a complete, dense n×n rectangle (every one of the n² cells
// present as an explicit entry). Only square blocks are considered — both
// BlockR{r} and BlockC{c} traversals are square in this implementation
// (see reorder.BlockR/BlockC) — which already covers spec.md §8's "Dense
// 4×4 block" scenario. Each found Instance carries the row-major indices of
// its member elements, ascending, so the builder can anchor the unit at the
// earliest row-major position and consume the rest wherever they fall.
func findBlocks[V reorder.Numeric](elems []reorder.Element[V], perm []int, n int) []Instance {
	if n < 2 {
		return nil
	}
	var out []Instance
	i := 0
	for i < len(perm) {
		first := elems[perm[i]]
		blockRow := first.Row / uint64(n)
		blockCol := first.Col / uint64(n)
		j := i
		for j < len(perm) {
			e := elems[perm[j]]
			if e.Row/uint64(n) != blockRow || e.Col/uint64(n) != blockCol {
				break
			}
			j++
		}
		if j-i == n*n && isDenseSquare(elems, perm[i:j], blockRow, blockCol, n) {
			out = append(out, Instance{Kind: ctl.BlockKind(uint8(n), uint8(n)), Indices: sortedCopy(perm[i:j])})
		}
		i = j
	}
	return out
}

// sortedCopy returns an ascending-sorted copy of idx, leaving idx untouched
// (idx is a slice of the shared permutation array and must not be mutated).
func sortedCopy(idx []int) []int {
	out := make([]int, len(idx))
	copy(out, idx)
	sort.Ints(out)
	return out
}

// isDenseSquare checks that the elements at elems[idx] contain exactly
// every (row, col) pair of the n×n rectangle rooted at
// (blockRow*n, blockCol*n).
func isDenseSquare[V reorder.Numeric](elems []reorder.Element[V], idx []int, blockRow, blockCol uint64, n int) bool {
	seen := make(map[[2]uint64]bool, len(idx))
	for _, k := range idx {
		e := elems[k]
		seen[[2]uint64{e.Row, e.Col}] = true
	}
	base := [2]uint64{blockRow * uint64(n), blockCol * uint64(n)}
	for r := uint64(0); r < uint64(n); r++ {
		for c := uint64(0); c < uint64(n); c++ {
			if !seen[[2]uint64{base[0] + r, base[1] + c}] {
				return false
			}
		}
	}
	return true
}

// findDiagRuns scans elems in the diag/anti-diag order described by perm
// for maximal runs of at least 2 elements that lie on the same diagonal key
// (row-col for TagDiag, row+col for TagAntiDiag) AND occupy strictly
// consecutive rows. The row-consecutiveness requirement matches the kernel
// contract (spec.md §4.G): the decode loop advances y_cursor by exactly 1
// per step within a diagonal unit, with no row-jump mechanism inside the
// pattern body, so a run with a row gap cannot be represented as one unit
// and is split at the gap instead. Each run is tagged with the narrowest
// delta width that fits every column step within it — analogous to a
// Delta-δ run, per spec.md §3 ("Diag-δ / AntiDiag-δ: runs along a
// diagonal, analogous to delta units"). Indices are recorded in ascending
// row-major order, matching findBlocks.
func findDiagRuns[V reorder.Numeric](elems []reorder.Element[V], perm []int, tag ctl.Tag) []Instance {
	var out []Instance
	i := 0
	for i < len(perm) {
		key := diagKeyOf(elems[perm[i]], tag)
		j := i + 1
		for j < len(perm) &&
			diagKeyOf(elems[perm[j]], tag) == key &&
			elems[perm[j]].Row == elems[perm[j-1]].Row+1 {
			j++
		}
		if j-i >= 2 {
			w := widestDeltaIn(elems, perm[i:j])
			kind := ctl.Kind{Tag: tag, Delta: w}
			out = append(out, Instance{Kind: kind, Indices: sortedCopy(perm[i:j])})
		}
		i = j
	}
	return out
}

func diagKeyOf[V reorder.Numeric](e reorder.Element[V], tag ctl.Tag) int64 {
	if tag == ctl.TagAntiDiag {
		return int64(e.Row + e.Col)
	}
	return int64(e.Row) - int64(e.Col)
}

// widestDeltaIn returns the narrowest delta width that fits every
// consecutive column gap along the run idx (idx is in traversal order, not
// row-major order).
func widestDeltaIn[V reorder.Numeric](elems []reorder.Element[V], idx []int) ctl.Width {
	w := ctl.Width8
	for i := 1; i < len(idx); i++ {
		a, b := elems[idx[i-1]].Col, elems[idx[i]].Col
		var d uint64
		if b >= a {
			d = b - a
		} else {
			d = a - b
		}
		if need := ctl.WidthFor(d); need > w {
			w = need
		}
	}
	return w
}
