package sparsex

import "github.com/tabac/sparsex/internal/reorder"

// Input is a loaded, not-yet-tuned matrix: a flat row-major element
// stream plus its declared shape. MatTune consumes an Input and never
// mutates it.
type Input[V reorder.Numeric] struct {
	NumRows  uint64
	NumCols  uint64
	Elements []reorder.Element[V]
}

// InputLoadCSR builds an Input from CSR arrays: rowptr has length
// nrows+1, colind and values both have length rowptr[nrows]-rowptr[0].
// indexing is 0 for 0-based arrays or 1 for 1-based (Fortran-style)
// arrays; both rowptr and colind are interpreted under the same
// indexing.
func InputLoadCSR[V reorder.Numeric](rowptr, colind []uint64, values []V, nrows, ncols uint64, indexing int) (*Input[V], error) {
	if indexing != 0 && indexing != 1 {
		return nil, newErr(ArgInvalid, "indexing must be 0 or 1", nil)
	}
	if uint64(len(rowptr)) != nrows+1 {
		return nil, newErr(ArgInvalid, "len(rowptr) must be nrows+1", nil)
	}
	base := uint64(indexing)
	for i := 1; i < len(rowptr); i++ {
		if rowptr[i] < rowptr[i-1] {
			return nil, newErr(InputMat, "rowptr must be non-decreasing", nil)
		}
	}
	nnz := rowptr[len(rowptr)-1] - base
	if uint64(len(colind)) != nnz || uint64(len(values)) != nnz {
		return nil, newErr(InputMat, "colind/values length does not match rowptr's declared nnz", nil)
	}

	elems := make([]reorder.Element[V], 0, nnz)
	for row := uint64(0); row < nrows; row++ {
		start, end := rowptr[row]-base, rowptr[row+1]-base
		for k := start; k < end; k++ {
			col := colind[k] - base
			if col >= ncols {
				return nil, newErr(InputMat, "column index out of range", nil)
			}
			elems = append(elems, reorder.Element[V]{Row: row, Col: col, Value: values[k]})
		}
	}

	return &Input[V]{NumRows: nrows, NumCols: ncols, Elements: elems}, nil
}

// MMFEntry is one (row, col, value) triple read from a Matrix Market
// file, 0-based regardless of the file's own 1-based convention — the
// MMFReader implementation is responsible for that conversion.
type MMFEntry[V reorder.Numeric] struct {
	Row, Col uint64
	Value    V
}

// MMFReader is the seam spec.md §1 leaves external: actual MMF parsing
// (tokenizing the file, handling its symmetric/general/pattern variants)
// is out of scope, but the interface a loader must satisfy is specified
// here so a caller can plug one in.
type MMFReader[V reorder.Numeric] interface {
	ReadMMF(path string) (entries []MMFEntry[V], nrows, ncols uint64, err error)
}

// InputLoadMMF builds an Input by delegating to reader, then reshaping
// its triples into the Input's row-major element stream.
func InputLoadMMF[V reorder.Numeric](path string, reader MMFReader[V]) (*Input[V], error) {
	entries, nrows, ncols, err := reader.ReadMMF(path)
	if err != nil {
		return nil, newErr(FileIo, "reading MMF file "+path, err)
	}

	elems := make([]reorder.Element[V], len(entries))
	for i, e := range entries {
		if e.Row >= nrows || e.Col >= ncols {
			return nil, newErr(InputMat, "MMF entry out of declared bounds", nil)
		}
		elems[i] = reorder.Element[V]{Row: e.Row, Col: e.Col, Value: e.Value}
	}

	return &Input[V]{NumRows: nrows, NumCols: ncols, Elements: elems}, nil
}
