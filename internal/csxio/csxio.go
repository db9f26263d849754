// Package csxio implements the persisted CSX file layout of spec.md §6:
// a fixed binary header, the pattern catalog (a count followed by one
// Kind per id), one per-thread header block, then the concatenated
// values/ctl arrays and a length-prefixed permutation array, all
// little-endian.
//
// No library in the example corpus offers a structured binary codec —
// the pack's closest candidate, internal/bitpack's SIMD bit-packing, only
// concerns itself with sub-byte integer widths inside a ctl stream, not
// whole-file framing. Spec.md §6 also pins an exact literal byte layout
// (magic, field order, field widths) a general-purpose serialization
// library would not reproduce without a custom schema anyway, so this
// package is one of the few places std's encoding/binary is used
// directly rather than through a pack dependency.
package csxio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/tabac/sparsex/internal/ctl"
	"github.com/tabac/sparsex/internal/reorder"
)

// Magic is the 4-byte file signature every persisted CSX file starts
// with.
var Magic = [4]byte{'C', 'S', 'X', 0}

// Version is the on-disk format version this package reads and writes.
const Version uint32 = 1

// ThreadHeader is one partition's entry in the per-thread header block.
type ThreadHeader struct {
	RowStart uint64
	NrRows   uint64
	NrNzeros uint64
	CtlLen   uint64
	Node     int32
}

// File is the in-memory form of a persisted CSX matrix: everything Save
// writes and Load reconstructs, without any of internal/kernel's pool or
// dispatch machinery.
type File[V reorder.Numeric] struct {
	NumRows   uint64
	NumCols   uint64
	Nnz       uint64
	Symmetric bool
	// Catalog is the pattern id→Kind mapping every Ctl stream in Threads
	// was encoded against; without it a decoder cannot resolve a flag
	// byte's pattern id back to a Kind. May be nil (equivalent to an
	// empty catalog) if no partition uses any pattern.
	Catalog *ctl.Catalog
	Threads []ThreadHeader
	Values  [][]V
	Ctl     [][]byte
	// Permutation is the row permutation applied by DRLE reordering
	// before tuning, or nil if none was applied — spec.md §6's "optional
	// permutation array". On disk this is always length-prefixed (a
	// zero length means absent); spec.md does not specify a presence
	// marker, and a length prefix is the least surprising convention
	// given every other variable-length section in the same layout
	// (the per-thread block, the values/ctl arrays) is already
	// explicitly counted rather than sentinel-terminated.
	Permutation []uint64
}

// Save writes f to w in spec.md §6's persisted CSX file layout.
func Save[V reorder.Numeric](w io.Writer, f *File[V]) error {
	bw := bufio.NewWriter(w)

	if err := writeHeader(bw, f); err != nil {
		return err
	}
	if err := writeCatalog(bw, f.Catalog); err != nil {
		return err
	}
	for _, th := range f.Threads {
		if err := writeThreadHeader(bw, th); err != nil {
			return err
		}
	}
	for i, values := range f.Values {
		if err := binary.Write(bw, binary.LittleEndian, values); err != nil {
			return fmt.Errorf("csxio: writing values for thread %d: %w", i, err)
		}
	}
	for i, ctlBytes := range f.Ctl {
		if _, err := bw.Write(ctlBytes); err != nil {
			return fmt.Errorf("csxio: writing ctl for thread %d: %w", i, err)
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(f.Permutation))); err != nil {
		return fmt.Errorf("csxio: writing permutation length: %w", err)
	}
	if len(f.Permutation) > 0 {
		if err := binary.Write(bw, binary.LittleEndian, f.Permutation); err != nil {
			return fmt.Errorf("csxio: writing permutation: %w", err)
		}
	}
	return bw.Flush()
}

func writeHeader[V reorder.Numeric](w io.Writer, f *File[V]) error {
	var zero V
	valueSize := uint8(unsafe.Sizeof(zero))

	fields := []any{
		Magic,
		Version,
		f.NumRows, f.NumCols, f.Nnz,
		boolToByte(f.Symmetric),
		valueSize,
		uint8(8), // index-size: row/col indices are always uint64 (reorder.Element)
		uint32(len(f.Threads)),
	}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("csxio: writing file header: %w", err)
		}
	}
	return nil
}

// writeCatalog persists the pattern catalog's Kinds() in id order, so
// Load can rebuild the exact id→Kind mapping the ctl streams being
// written were encoded against (internal/ctl's decoder resolves a flag
// byte's pattern id through this same mapping). A nil catalog (no
// patterns ever assigned) writes a zero count.
func writeCatalog(w io.Writer, c *ctl.Catalog) error {
	var kinds []ctl.Kind
	if c != nil {
		kinds = c.Kinds()
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(kinds))); err != nil {
		return fmt.Errorf("csxio: writing catalog length: %w", err)
	}
	for _, k := range kinds {
		fields := []any{uint8(k.Tag), uint8(k.Delta), k.BlockR, k.BlockC}
		for _, field := range fields {
			if err := binary.Write(w, binary.LittleEndian, field); err != nil {
				return fmt.Errorf("csxio: writing catalog kind: %w", err)
			}
		}
	}
	return nil
}

func readCatalog(r io.Reader) (*ctl.Catalog, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("csxio: reading catalog length: %w", err)
	}
	kinds := make([]ctl.Kind, n)
	for i := range kinds {
		var tag, delta, blockR, blockC uint8
		fields := []any{&tag, &delta, &blockR, &blockC}
		for _, field := range fields {
			if err := binary.Read(r, binary.LittleEndian, field); err != nil {
				return nil, fmt.Errorf("csxio: reading catalog kind %d: %w", i, err)
			}
		}
		kinds[i] = ctl.Kind{Tag: ctl.Tag(tag), Delta: ctl.Width(delta), BlockR: blockR, BlockC: blockC}
	}
	return ctl.NewCatalogFromKinds(kinds), nil
}

func writeThreadHeader(w io.Writer, th ThreadHeader) error {
	fields := []any{th.RowStart, th.NrRows, th.NrNzeros, th.CtlLen, th.Node}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("csxio: writing thread header: %w", err)
		}
	}
	return nil
}

// Load reads a File previously written by Save.
func Load[V reorder.Numeric](r io.Reader) (*File[V], error) {
	br := bufio.NewReader(r)

	f := &File[V]{}
	nThreads, err := readHeader(br, f)
	if err != nil {
		return nil, err
	}

	catalog, err := readCatalog(br)
	if err != nil {
		return nil, err
	}
	f.Catalog = catalog

	f.Threads = make([]ThreadHeader, nThreads)
	for i := range f.Threads {
		th, err := readThreadHeader(br)
		if err != nil {
			return nil, fmt.Errorf("csxio: reading thread header %d: %w", i, err)
		}
		f.Threads[i] = th
	}

	f.Values = make([][]V, nThreads)
	for i, th := range f.Threads {
		values := make([]V, th.NrNzeros)
		if err := binary.Read(br, binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("csxio: reading values for thread %d: %w", i, err)
		}
		f.Values[i] = values
	}

	f.Ctl = make([][]byte, nThreads)
	for i, th := range f.Threads {
		ctlBytes := make([]byte, th.CtlLen)
		if _, err := io.ReadFull(br, ctlBytes); err != nil {
			return nil, fmt.Errorf("csxio: reading ctl for thread %d: %w", i, err)
		}
		f.Ctl[i] = ctlBytes
	}

	var permLen uint64
	if err := binary.Read(br, binary.LittleEndian, &permLen); err != nil {
		return nil, fmt.Errorf("csxio: reading permutation length: %w", err)
	}
	if permLen > 0 {
		perm := make([]uint64, permLen)
		if err := binary.Read(br, binary.LittleEndian, perm); err != nil {
			return nil, fmt.Errorf("csxio: reading permutation: %w", err)
		}
		f.Permutation = perm
	}

	return f, nil
}

func readHeader[V reorder.Numeric](r io.Reader, f *File[V]) (nThreads uint32, err error) {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return 0, fmt.Errorf("csxio: reading magic: %w", err)
	}
	if magic != Magic {
		return 0, fmt.Errorf("csxio: bad magic %q, want %q", magic, Magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, fmt.Errorf("csxio: reading version: %w", err)
	}
	if version != Version {
		return 0, fmt.Errorf("csxio: unsupported version %d, want %d", version, Version)
	}

	if err := binary.Read(r, binary.LittleEndian, &f.NumRows); err != nil {
		return 0, fmt.Errorf("csxio: reading nrows: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.NumCols); err != nil {
		return 0, fmt.Errorf("csxio: reading ncols: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.Nnz); err != nil {
		return 0, fmt.Errorf("csxio: reading nnz: %w", err)
	}

	var symmetric, valueSize, indexSize uint8
	if err := binary.Read(r, binary.LittleEndian, &symmetric); err != nil {
		return 0, fmt.Errorf("csxio: reading symmetric flag: %w", err)
	}
	f.Symmetric = symmetric != 0

	if err := binary.Read(r, binary.LittleEndian, &valueSize); err != nil {
		return 0, fmt.Errorf("csxio: reading value size: %w", err)
	}
	var zero V
	if want := uint8(unsafe.Sizeof(zero)); valueSize != want {
		return 0, fmt.Errorf("csxio: file value size %d does not match requested type (%d bytes)", valueSize, want)
	}

	if err := binary.Read(r, binary.LittleEndian, &indexSize); err != nil {
		return 0, fmt.Errorf("csxio: reading index size: %w", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &nThreads); err != nil {
		return 0, fmt.Errorf("csxio: reading thread count: %w", err)
	}
	return nThreads, nil
}

func readThreadHeader(r io.Reader) (ThreadHeader, error) {
	var th ThreadHeader
	for _, field := range []any{&th.RowStart, &th.NrRows, &th.NrNzeros, &th.CtlLen, &th.Node} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return ThreadHeader{}, err
		}
	}
	return th, nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
