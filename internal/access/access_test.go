package access_test

import (
	"testing"

	"github.com/tabac/sparsex/internal/access"
	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/part"
	"github.com/tabac/sparsex/internal/reorder"
)

func buildMatrix(t *testing.T, elems []reorder.Element[float64], nrows uint64, affinity []int) *access.Matrix[float64] {
	t.Helper()

	catalog := ctl.NewCatalog()
	parts := part.Split(elems, nil, nrows, affinity, func(cpu int) int { return 0 })

	m := &access.Matrix[float64]{Catalog: catalog}
	for _, pt := range parts {
		values, ctlBytes := ctl.Build(pt.Elements, pt.Instances, catalog, 1, nil)
		m.Partitions = append(m.Partitions, access.Partition[float64]{
			RowStart: pt.RowStart,
			NrRows:   pt.NrRows,
			Values:   values,
			Ctl:      ctlBytes,
		})
	}
	return m
}

func TestGetHit(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1},
		{Row: 1, Col: 2, Value: 7},
		{Row: 3, Col: 1, Value: 9},
	}
	m := buildMatrix(t, elems, 4, []int{-1, -1})
	a := access.New(m)

	v, ok := a.Get(1, 2)
	if !ok || v != 7 {
		t.Errorf("Get(1,2) = (%v, %v), want (7, true)", v, ok)
	}
	v, ok = a.Get(3, 1)
	if !ok || v != 9 {
		t.Errorf("Get(3,1) = (%v, %v), want (9, true)", v, ok)
	}
}

func TestGetMiss(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1},
		{Row: 2, Col: 2, Value: 7},
	}
	m := buildMatrix(t, elems, 4, []int{-1})
	a := access.New(m)

	if _, ok := a.Get(1, 0); ok {
		t.Error("Get on an empty row should miss")
	}
	if _, ok := a.Get(0, 3); ok {
		t.Error("Get on a non-existent column should miss")
	}
}

func TestGetOutOfRowRange(t *testing.T) {
	elems := []reorder.Element[float64]{{Row: 0, Col: 0, Value: 1}}
	m := buildMatrix(t, elems, 1, []int{-1})
	a := access.New(m)

	if _, ok := a.Get(5, 0); ok {
		t.Error("Get on a row outside every partition should miss")
	}
}

func TestSetOverwritesExistingEntry(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1},
		{Row: 1, Col: 1, Value: 2},
	}
	m := buildMatrix(t, elems, 2, []int{-1})
	a := access.New(m)

	if err := a.Set(1, 1, 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := a.Get(1, 1)
	if !ok || v != 42 {
		t.Errorf("Get(1,1) after Set = (%v, %v), want (42, true)", v, ok)
	}
}

func TestSetInsertionNotSupported(t *testing.T) {
	elems := []reorder.Element[float64]{{Row: 0, Col: 0, Value: 1}}
	m := buildMatrix(t, elems, 2, []int{-1})
	a := access.New(m)

	if err := a.Set(1, 1, 5); err != access.ErrNotFound {
		t.Errorf("Set on a missing entry = %v, want ErrNotFound", err)
	}
}

// TestGetAfterDiagonalCursorRestore reproduces the spec.md §8
// "Diagonal-pattern" bidiagonal scenario directly against the Accessor:
// a main-diagonal Diag unit (anchored at row 0, spanning rows 0-4) is
// immediately followed by a superdiagonal Diag unit that, thanks to
// cursor restore, is also anchored back at row 0. A cache that stops
// decoding once it has seen some row >= the query row would give up
// after the first unit and miss the second one entirely.
func TestGetAfterDiagonalCursorRestore(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1}, {Row: 0, Col: 1, Value: 2},
		{Row: 1, Col: 1, Value: 3}, {Row: 1, Col: 2, Value: 4},
		{Row: 2, Col: 2, Value: 5}, {Row: 2, Col: 3, Value: 6},
		{Row: 3, Col: 3, Value: 7}, {Row: 3, Col: 4, Value: 8},
		{Row: 4, Col: 4, Value: 9},
	}
	instances := []ctl.Instance{
		{Kind: ctl.DiagKind(ctl.Width8), Indices: []int{0, 2, 4, 6, 8}},
		{Kind: ctl.DiagKind(ctl.Width8), Indices: []int{1, 3, 5, 7}},
	}

	catalog := ctl.NewCatalog()
	parts := part.Split(elems, instances, 5, []int{-1}, func(cpu int) int { return 0 })
	if len(parts) != 1 {
		t.Fatalf("len(parts) = %d, want 1", len(parts))
	}
	values, ctlBytes := ctl.Build(parts[0].Elements, parts[0].Instances, catalog, 1, nil)

	m := &access.Matrix[float64]{Catalog: catalog}
	m.Partitions = append(m.Partitions, access.Partition[float64]{
		RowStart: parts[0].RowStart,
		NrRows:   parts[0].NrRows,
		Values:   values,
		Ctl:      ctlBytes,
	})

	a := access.New(m)

	v, ok := a.Get(0, 1)
	if !ok || v != 2 {
		t.Errorf("Get(0,1) = (%v, %v), want (2, true) — the superdiagonal unit, anchored back at row 0 by cursor restore, must still be reachable", v, ok)
	}
	v, ok = a.Get(0, 0)
	if !ok || v != 1 {
		t.Errorf("Get(0,0) = (%v, %v), want (1, true)", v, ok)
	}
	v, ok = a.Get(3, 4)
	if !ok || v != 8 {
		t.Errorf("Get(3,4) = (%v, %v), want (8, true)", v, ok)
	}
}

func TestGetAfterRandomAccessOrder(t *testing.T) {
	// Repeated out-of-order Get calls must not corrupt the memoized cache.
	elems := []reorder.Element[float64]{
		{Row: 0, Col: 0, Value: 1},
		{Row: 1, Col: 0, Value: 2},
		{Row: 2, Col: 0, Value: 3},
		{Row: 3, Col: 0, Value: 4},
	}
	m := buildMatrix(t, elems, 4, []int{-1})
	a := access.New(m)

	order := []uint64{3, 0, 2, 1, 3, 0}
	want := map[uint64]float64{0: 1, 1: 2, 2: 3, 3: 4}
	for _, row := range order {
		v, ok := a.Get(row, 0)
		if !ok || v != want[row] {
			t.Errorf("Get(%d,0) = (%v, %v), want (%v, true)", row, v, ok, want[row])
		}
	}
}
