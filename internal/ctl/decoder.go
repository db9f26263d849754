package ctl

import "github.com/tabac/sparsex/internal/reorder"

// Unit is one fully-resolved ctl unit: the pattern kind, and for every
// member value the absolute (row, col) it contributes to. Rows/Cols/Values
// all have the same length (the unit's size). This is the shared currency
// between Decoder and its two consumers (internal/kernel's SpMV dispatch
// table and internal/access's row scan), so neither has to re-derive
// pattern geometry from raw ctl bytes.
type Unit[V reorder.Numeric] struct {
	Kind   Kind
	Rows   []uint64
	Cols   []uint64
	Values []V
}

// Decoder walks a ctl byte stream and its paired values array unit by
// unit, implementing the state machine of spec.md's "State Machine: ctl
// Decoder" section (AtUnitHeader → AtColumn → AtPatternBody →
// AtUnitHeader). A Decoder is single-pass and not safe for concurrent use;
// each worker thread owns its own.
type Decoder[V reorder.Numeric] struct {
	ctl     []byte
	values  []V
	catalog *Catalog

	cursor    int
	valCursor int
	row       uint64
	col       uint64
}

// NewDecoder returns a Decoder positioned at the start of ctlBytes, with
// the cursor's row/col origin at (0, 0) — the partition-local origin
// spec.md §4.G's y_cursor/myx both start from.
func NewDecoder[V reorder.Numeric](ctlBytes []byte, values []V, catalog *Catalog) *Decoder[V] {
	return &Decoder[V]{ctl: ctlBytes, values: values, catalog: catalog}
}

// Done reports whether every byte of the ctl stream has been consumed.
func (d *Decoder[V]) Done() bool { return d.cursor >= len(d.ctl) }

// Row returns the decode cursor's current row, valid between Next calls
// (e.g. to seed a search for a specific row in internal/access).
func (d *Decoder[V]) Row() uint64 { return d.row }

// Next decodes one unit, advancing the cursor past its header, optional
// row jump, column, and pattern body. It returns (Unit{}, false) once
// Done().
func (d *Decoder[V]) Next() (Unit[V], bool) {
	if d.Done() {
		return Unit[V]{}, false
	}

	flag := d.ctl[d.cursor]
	size := int(d.ctl[d.cursor+1])
	d.cursor += 2

	nr := FlagNR(flag)
	if nr {
		if FlagRJMP(flag) {
			dj, n := Uvarint(d.ctl[d.cursor:])
			d.cursor += n
			d.row += dj
		} else {
			d.row++
		}
	}

	var startCol uint64
	if nr {
		v, n := Uvarint(d.ctl[d.cursor:])
		d.cursor += n
		startCol = v
	} else {
		dv, n := Uvarint(d.ctl[d.cursor:])
		d.cursor += n
		startCol = d.col + dv
	}

	kind := d.catalog.Kind(FlagPatternID(flag))
	rows := make([]uint64, size)
	cols := make([]uint64, size)
	baseRow := d.row

	switch kind.Tag {
	case TagBlock:
		c := int(kind.BlockC)
		for k := 0; k < size; k++ {
			rows[k] = baseRow + uint64(k/c)
			cols[k] = startCol + uint64(k%c)
		}
		d.col = startCol // block never advances the cursor permanently

	case TagDelta:
		pad := AlignPad(d.cursor, kind.Delta)
		d.cursor += pad
		col := startCol
		rows[0], cols[0] = baseRow, col
		for k := 1; k < size; k++ {
			delta := Delta(d.ctl[d.cursor:], kind.Delta)
			d.cursor += kind.Delta.Bytes()
			col += delta
			rows[k], cols[k] = baseRow, col
		}
		d.col = col

	case TagDiag, TagAntiDiag:
		pad := AlignPad(d.cursor, kind.Delta)
		d.cursor += pad
		col := startCol
		row := baseRow
		rows[0], cols[0] = row, col
		for k := 1; k < size; k++ {
			if kind.Tag == TagAntiDiag {
				delta := SignedDelta(d.ctl[d.cursor:], kind.Delta)
				col = uint64(int64(col) + delta)
			} else {
				delta := Delta(d.ctl[d.cursor:], kind.Delta)
				col += delta
			}
			d.cursor += kind.Delta.Bytes()
			row++
			rows[k], cols[k] = row, col
		}
		// Cursor restore (spec.md §4.G): the next unit's row/column
		// state is computed as if this unit never moved off baseRow.
		d.col = startCol
	}

	valStart := d.valCursor
	d.valCursor += size

	return Unit[V]{Kind: kind, Rows: rows, Cols: cols, Values: d.values[valStart:d.valCursor]}, true
}
