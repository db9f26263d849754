package csxio_test

import (
	"bytes"
	"testing"

	"github.com/tabac/sparsex/internal/csxio"
	"github.com/tabac/sparsex/internal/ctl"
)

func sampleFile() *csxio.File[float64] {
	return &csxio.File[float64]{
		NumRows:   4,
		NumCols:   4,
		Nnz:       5,
		Symmetric: false,
		Threads: []csxio.ThreadHeader{
			{RowStart: 0, NrRows: 2, NrNzeros: 3, CtlLen: 6, Node: 0},
			{RowStart: 2, NrRows: 2, NrNzeros: 2, CtlLen: 4, Node: 1},
		},
		Values: [][]float64{
			{1, 2, 3},
			{4, 5},
		},
		Ctl: [][]byte{
			{0x01, 0x01, 0x00, 0x01, 0x01, 0x01},
			{0x01, 0x01, 0x00, 0x00},
		},
		Permutation: []uint64{2, 0, 3, 1},
	}
}

func TestRoundTrip(t *testing.T) {
	want := sampleFile()

	var buf bytes.Buffer
	if err := csxio.Save(&buf, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := csxio.Load[float64](&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.NumRows != want.NumRows || got.NumCols != want.NumCols || got.Nnz != want.Nnz {
		t.Errorf("dims = (%d,%d,%d), want (%d,%d,%d)", got.NumRows, got.NumCols, got.Nnz, want.NumRows, want.NumCols, want.Nnz)
	}
	if got.Symmetric != want.Symmetric {
		t.Errorf("Symmetric = %v, want %v", got.Symmetric, want.Symmetric)
	}
	if len(got.Threads) != len(want.Threads) {
		t.Fatalf("len(Threads) = %d, want %d", len(got.Threads), len(want.Threads))
	}
	for i := range want.Threads {
		if got.Threads[i] != want.Threads[i] {
			t.Errorf("Threads[%d] = %+v, want %+v", i, got.Threads[i], want.Threads[i])
		}
		if !equalFloat(got.Values[i], want.Values[i]) {
			t.Errorf("Values[%d] = %v, want %v", i, got.Values[i], want.Values[i])
		}
		if !bytes.Equal(got.Ctl[i], want.Ctl[i]) {
			t.Errorf("Ctl[%d] = %v, want %v", i, got.Ctl[i], want.Ctl[i])
		}
	}
	if !equalU64(got.Permutation, want.Permutation) {
		t.Errorf("Permutation = %v, want %v", got.Permutation, want.Permutation)
	}
}

func TestRoundTripNoPermutation(t *testing.T) {
	want := sampleFile()
	want.Permutation = nil

	var buf bytes.Buffer
	if err := csxio.Save(&buf, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := csxio.Load[float64](&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Permutation) != 0 {
		t.Errorf("Permutation = %v, want empty", got.Permutation)
	}
}

// TestRoundTripPreservesCatalogIDs checks that Load rebuilds the exact
// id→Kind mapping Save wrote, in assignment order — a decoder resolves
// a flag byte's pattern id through this mapping and panics on an
// unknown id, so any reordering or drop here would break every
// restored matrix that uses more than the catalog's first entry.
func TestRoundTripPreservesCatalogIDs(t *testing.T) {
	want := sampleFile()
	catalog := ctl.NewCatalog()
	kinds := []ctl.Kind{
		ctl.DeltaKind(ctl.Width8),
		ctl.DiagKind(ctl.Width16),
		ctl.BlockKind(4, 4),
		ctl.AntiDiagKind(ctl.Width32),
	}
	for _, k := range kinds {
		catalog.IDFor(k)
	}
	want.Catalog = catalog

	var buf bytes.Buffer
	if err := csxio.Save(&buf, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := csxio.Load[float64](&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Catalog == nil {
		t.Fatal("Load: Catalog is nil, want a rebuilt catalog")
	}
	if got.Catalog.Len() != len(kinds) {
		t.Fatalf("Catalog.Len() = %d, want %d", got.Catalog.Len(), len(kinds))
	}
	for id, k := range kinds {
		if gotKind := got.Catalog.Kind(id); gotKind != k {
			t.Errorf("Catalog.Kind(%d) = %+v, want %+v", id, gotKind, k)
		}
	}
}

func TestRoundTripNilCatalogLoadsAsEmpty(t *testing.T) {
	want := sampleFile()
	want.Catalog = nil

	var buf bytes.Buffer
	if err := csxio.Save(&buf, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := csxio.Load[float64](&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Catalog == nil || got.Catalog.Len() != 0 {
		t.Errorf("Catalog = %+v, want a non-nil empty catalog", got.Catalog)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{'X', 'X', 'X', 'X'})
	if _, err := csxio.Load[float64](buf); err == nil {
		t.Error("Load with bad magic should error")
	}
}

func TestLoadRejectsMismatchedValueSize(t *testing.T) {
	var buf bytes.Buffer
	if err := csxio.Save(&buf, sampleFile()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := csxio.Load[float32](&buf); err == nil {
		t.Error("Load[float32] against a float64 file should error")
	}
}

func equalFloat(a, b []float64) bool {
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

func equalU64(a, b []uint64) bool {
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
