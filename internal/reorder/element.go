// Package reorder implements the element store and the geometric
// traversal reorderings of spec.md §4.A: a stable permutation of an
// (row, col, value) triple stream that makes a left-to-right scan visit
// non-zeros in row, column, diagonal, anti-diagonal or block order.
package reorder

import "sort"

// Numeric is the value-type capability set spec.md §9 asks for: "the core
// is polymorphic over the value type (needs +, *, a zero)". Only float64
// and float32 are required; both satisfy it.
type Numeric interface {
	~float32 | ~float64
}

// Element is one non-zero entry. Rows and columns are 0-based internally
// (spec.md §3); the external 0/1-based option, if any, is applied by the
// CSR/MMF loader before elements reach this package.
type Element[V Numeric] struct {
	Row, Col uint64
	Value    V
}

// Order is a tagged traversal order (spec.md §3).
type Order struct {
	kind   orderKind
	blockR int
	blockC int
}

type orderKind uint8

const (
	orderRow orderKind = iota
	orderCol
	orderDiag
	orderAntiDiag
	orderBlockR
	orderBlockC
)

// Row is the identity traversal: elements visited in (row, col) order.
var Row = Order{kind: orderRow}

// Col visits elements in (col, row) order.
var Col = Order{kind: orderCol}

// Diag visits elements by ascending diagonal key (row - col), secondary
// key row.
var Diag = Order{kind: orderDiag}

// AntiDiag visits elements by anti-diagonal (row + col), secondary key row.
var AntiDiag = Order{kind: orderAntiDiag}

// BlockR returns the block traversal keyed primarily by row/r, then col/c,
// then row, then col, with an r-row block height. r must be in [2,8]
// (spec.md §3).
func BlockR(r int) Order {
	if r < 2 || r > 8 {
		panic("reorder: block row size out of [2,8]")
	}
	return Order{kind: orderBlockR, blockR: r, blockC: r}
}

// BlockC returns the analogous block traversal keyed by col/c primarily,
// with a c-column block width. c must be in [2,8].
func BlockC(c int) Order {
	if c < 2 || c > 8 {
		panic("reorder: block col size out of [2,8]")
	}
	return Order{kind: orderBlockC, blockR: c, blockC: c}
}

// BlockSize returns the block dimension for a BlockR/BlockC order, or 0
// for any other order.
func (o Order) BlockSize() int { return o.blockR }

// String names the order, for logging and config parsing.
func (o Order) String() string {
	switch o.kind {
	case orderRow:
		return "row"
	case orderCol:
		return "col"
	case orderDiag:
		return "diag"
	case orderAntiDiag:
		return "antidiag"
	case orderBlockR:
		return "blockr"
	case orderBlockC:
		return "blockc"
	default:
		return "unknown"
	}
}

// Transform returns a new slice containing elems reordered so that a
// left-to-right scan visits non-zeros in the traversal o describes.
// Dimensions are invariant; this only permutes the sequence. The sort is
// stable (spec.md §4.A: "Sort must be stable; ties break by the prior
// position"), via sort.SliceStable — no sorting library appears anywhere
// in the example corpus, so the stdlib sort is the literal, direct
// implementation of the stated requirement.
func Transform[V Numeric](elems []Element[V], o Order) []Element[V] {
	perm := Permutation(elems, o)
	out := make([]Element[V], len(elems))
	for i, p := range perm {
		out[i] = elems[p]
	}
	return out
}

// Permutation returns the index permutation that reorders elems into the
// traversal o describes: perm[i] is the index into elems that lands at
// position i of the reordered sequence. Transform is exactly
// elems[Permutation(elems, o)] applied pointwise; Permutation is exposed
// separately so callers that need to correlate reordered positions back to
// the original element indices (the DRLE analyzer tagging block/diagonal
// pattern instances) don't have to re-derive it.
func Permutation[V Numeric](elems []Element[V], o Order) []int {
	perm := make([]int, len(elems))
	for i := range perm {
		perm[i] = i
	}
	less := lessFuncFor(elems, o, perm)
	sort.SliceStable(perm, less)
	return perm
}

func lessFuncFor[V Numeric](elems []Element[V], o Order, perm []int) func(i, j int) bool {
	switch o.kind {
	case orderRow:
		return func(a, b int) bool {
			i, j := perm[a], perm[b]
			if elems[i].Row != elems[j].Row {
				return elems[i].Row < elems[j].Row
			}
			return elems[i].Col < elems[j].Col
		}
	case orderCol:
		return func(a, b int) bool {
			i, j := perm[a], perm[b]
			if elems[i].Col != elems[j].Col {
				return elems[i].Col < elems[j].Col
			}
			return elems[i].Row < elems[j].Row
		}
	case orderDiag:
		return func(a, b int) bool {
			i, j := perm[a], perm[b]
			di, dj := diagKey(elems[i].Row, elems[i].Col), diagKey(elems[j].Row, elems[j].Col)
			if di != dj {
				return di < dj
			}
			return elems[i].Row < elems[j].Row
		}
	case orderAntiDiag:
		return func(a, b int) bool {
			i, j := perm[a], perm[b]
			ai, aj := elems[i].Row+elems[i].Col, elems[j].Row+elems[j].Col
			if ai != aj {
				return ai < aj
			}
			return elems[i].Row < elems[j].Row
		}
	case orderBlockR, orderBlockC:
		r, c := uint64(o.blockR), uint64(o.blockC)
		primaryIsRow := o.kind == orderBlockR
		return func(a, b int) bool {
			i, j := perm[a], perm[b]
			var pi, pj uint64
			if primaryIsRow {
				pi, pj = elems[i].Row/r, elems[j].Row/r
			} else {
				pi, pj = elems[i].Col/c, elems[j].Col/c
			}
			if pi != pj {
				return pi < pj
			}
			si, sj := elems[i].Col/c, elems[j].Col/c
			if !primaryIsRow {
				si, sj = elems[i].Row/r, elems[j].Row/r
			}
			if si != sj {
				return si < sj
			}
			if elems[i].Row != elems[j].Row {
				return elems[i].Row < elems[j].Row
			}
			return elems[i].Col < elems[j].Col
		}
	default:
		panic("reorder: unknown order kind")
	}
}

// diagKey maps (row, col) to the signed key row - col, computed in int64
// so that row < col gives a negative key instead of a uint64 wraparound.
func diagKey(row, col uint64) int64 {
	return int64(row) - int64(col)
}
