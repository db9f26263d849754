package part_test

import (
	"testing"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/part"
	"github.com/tabac/sparsex/internal/reorder"
)

func nodeOf(cpu int) int { return cpu % 2 }

func TestSplitBalancesNNZ(t *testing.T) {
	elems := make([]reorder.Element[float64], 0, 12)
	for r := uint64(0); r < 12; r++ {
		elems = append(elems, reorder.Element[float64]{Row: r, Col: 0, Value: 1})
	}

	parts := part.Split(elems, nil, 12, []int{0, 1, 2}, nodeOf)
	if len(parts) != 3 {
		t.Fatalf("len(parts) = %d, want 3", len(parts))
	}

	var total uint64
	for _, p := range parts {
		total += p.NrNzeros
		if p.NrNzeros != 4 {
			t.Errorf("partition nnz = %d, want 4 (12 rows / 3 threads)", p.NrNzeros)
		}
	}
	if total != 12 {
		t.Errorf("total nnz across partitions = %d, want 12", total)
	}
}

func TestSplitAssignsCPUAndNode(t *testing.T) {
	elems := []reorder.Element[float64]{{Row: 0, Col: 0, Value: 1}, {Row: 1, Col: 0, Value: 1}}
	parts := part.Split(elems, nil, 2, []int{3, 4}, nodeOf)
	if parts[0].CPU != 3 || parts[1].CPU != 4 {
		t.Errorf("CPUs = (%d, %d), want (3, 4)", parts[0].CPU, parts[1].CPU)
	}
	if parts[0].Node != nodeOf(3) || parts[1].Node != nodeOf(4) {
		t.Errorf("Nodes = (%d, %d), want (%d, %d)", parts[0].Node, parts[1].Node, nodeOf(3), nodeOf(4))
	}
}

func TestSplitRowsAreRenumberedLocally(t *testing.T) {
	elems := []reorder.Element[float64]{
		{Row: 5, Col: 0, Value: 1},
		{Row: 6, Col: 0, Value: 1},
	}
	parts := part.Split(elems, nil, 10, []int{0}, nodeOf)
	if parts[0].RowStart != 0 {
		// Split always starts partition 0 at the matrix's row 0, not the
		// first nonzero row; the renumbering is relative to RowStart.
		t.Fatalf("unexpected RowStart %d", parts[0].RowStart)
	}
	for _, e := range parts[0].Elements {
		if e.Row < 5 {
			t.Errorf("element row %d was renumbered below its true position", e.Row)
		}
	}
}

func TestSplitNeverTearsAnInstance(t *testing.T) {
	// 8 rows, one row per nonzero, plus a 4-row diagonal instance spanning
	// rows 2-5 that a naive balanced split (2 threads, 4 rows each) would
	// otherwise cut through the middle of.
	elems := make([]reorder.Element[float64], 8)
	for r := range elems {
		elems[r] = reorder.Element[float64]{Row: uint64(r), Col: uint64(r), Value: 1}
	}
	instances := []ctl.Instance{
		{Kind: ctl.DiagKind(ctl.Width8), Indices: []int{2, 3, 4, 5}},
	}

	parts := part.Split(elems, instances, 8, []int{0, 1}, nodeOf)

	var found int
	for _, p := range parts {
		for _, inst := range p.Instances {
			found += len(inst.Indices)
		}
	}
	if found != 4 {
		t.Errorf("instance coverage after split = %d, want 4 (all 4 elements in one partition)", found)
	}
}

func TestSplitSingleThreadGetsEverything(t *testing.T) {
	elems := []reorder.Element[float64]{{Row: 0, Col: 0, Value: 1}, {Row: 1, Col: 1, Value: 2}}
	parts := part.Split(elems, nil, 2, []int{0}, nodeOf)
	if len(parts) != 1 || parts[0].NrRows != 2 || parts[0].NrNzeros != 2 {
		t.Errorf("single-thread split = %+v, want one partition covering all rows/nnz", parts)
	}
}
