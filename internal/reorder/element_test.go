package reorder_test

import (
	"testing"

	"github.com/tabac/sparsex/internal/reorder"
)

func elemsOf(pairs ...[2]uint64) []reorder.Element[float64] {
	out := make([]reorder.Element[float64], len(pairs))
	for i, p := range pairs {
		out[i] = reorder.Element[float64]{Row: p[0], Col: p[1], Value: float64(i)}
	}
	return out
}

func rowsCols(elems []reorder.Element[float64]) [][2]uint64 {
	out := make([][2]uint64, len(elems))
	for i, e := range elems {
		out[i] = [2]uint64{e.Row, e.Col}
	}
	return out
}

func TestTransformRowOrder(t *testing.T) {
	elems := elemsOf([2]uint64{1, 0}, [2]uint64{0, 1}, [2]uint64{0, 0})
	got := rowsCols(reorder.Transform(elems, reorder.Row))
	want := [][2]uint64{{0, 0}, {0, 1}, {1, 0}}
	if !equal(got, want) {
		t.Errorf("Row order = %v, want %v", got, want)
	}
}

func TestTransformColOrder(t *testing.T) {
	elems := elemsOf([2]uint64{0, 1}, [2]uint64{1, 0}, [2]uint64{0, 0})
	got := rowsCols(reorder.Transform(elems, reorder.Col))
	want := [][2]uint64{{0, 0}, {1, 0}, {0, 1}}
	if !equal(got, want) {
		t.Errorf("Col order = %v, want %v", got, want)
	}
}

func TestTransformDiagOrder(t *testing.T) {
	// row - col keys: (2,0)->2, (1,0)->1, (3,2)->1, (0,0)->0
	elems := elemsOf([2]uint64{2, 0}, [2]uint64{1, 0}, [2]uint64{3, 2}, [2]uint64{0, 0})
	got := rowsCols(reorder.Transform(elems, reorder.Diag))
	want := [][2]uint64{{0, 0}, {1, 0}, {3, 2}, {2, 0}}
	if !equal(got, want) {
		t.Errorf("Diag order = %v, want %v", got, want)
	}
}

func TestTransformBlockROrder(t *testing.T) {
	elems := elemsOf([2]uint64{3, 0}, [2]uint64{0, 0}, [2]uint64{1, 5})
	got := rowsCols(reorder.Transform(elems, reorder.BlockR(2)))
	// block row 0 (rows 0-1): (0,0) then (1,5); block row 1 (rows 2-3): (3,0).
	want := [][2]uint64{{0, 0}, {1, 5}, {3, 0}}
	if !equal(got, want) {
		t.Errorf("BlockR(2) order = %v, want %v", got, want)
	}
}

func TestTransformIsStable(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 0, Value: 2},
	}
	got := reorder.Transform(elems, reorder.Row)
	if got[0].Value != 1 || got[1].Value != 2 {
		t.Errorf("stable sort should preserve prior order for ties, got %v", got)
	}
}

func TestBlockOrderPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("BlockR(1) should panic: out of [2,8]")
		}
	}()
	reorder.BlockR(1)
}

func equal(a, b [][2]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
