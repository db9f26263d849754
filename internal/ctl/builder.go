package ctl

import "github.com/tabac/sparsex/internal/reorder"

// Logger receives builder warnings that never fail the tune call (spec.md
// §7's warnings side channel). Declared locally, structurally compatible
// with sparsex.Logger, so this package never imports the root module and
// stays free of an import cycle.
type Logger interface {
	Warnf(format string, args ...any)
}

// nopLogger discards every warning; used when the caller passes a nil
// Logger.
type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// builderState carries the decode-cursor-equivalent state the encoder must
// track across unit emissions: the absolute row and column the *next* unit
// is emitted relative to. It starts at (0, 0) — spec.md §4.G's y_cursor and
// myx both begin at the partition's local row/column origin, so the very
// first unit needs NR only if its row is not already 0 (see Build's doc
// comment for the reasoning behind this choice).
type builderState struct {
	prevRow uint64
	prevCol uint64
}

// Build runs the CSX builder of spec.md §4.C over elems — a single
// left-to-right pass over a thread-local, row-major (post-reorder) element
// range, with rows already expressed relative to the partition's own
// row_start (so the first row present is row 0). instances tags the
// sub-sequences discovered by internal/drle; everything else is encoded as
// maximal per-row delta-δ runs.
//
// Row-cursor convention: unlike the historical implementation (which
// leaves the very first unit's NR bit permanently 0 regardless of which
// row it actually starts at, relying on a separate global row-numbering
// pass this module does not replicate), Build treats row 0 as the decode
// cursor's starting position and applies the ordinary NR/RJMP rule
// uniformly, including to the first unit: NR is set whenever a unit's row
// differs from the running cursor, which for the very first unit means NR
// is set only if that row isn't 0 (e.g. the partition's row_start itself
// has no non-zeros and the true first row is a few rows later). This keeps
// one rule for every unit instead of a special case, and is documented as
// an explicit, deliberate reading of the contract in DESIGN.md.
// minUnitSize is spec.md §6's MIN_UNIT_SIZE: instances shorter than this
// are not worth the flag/header overhead of a dedicated pattern unit and
// are demoted to ordinary delta runs, the same way oversize instances are.
// Pass 0 to accept every instance regardless of length.
func Build[V reorder.Numeric](elems []reorder.Element[V], instances []Instance, catalog *Catalog, minUnitSize int, logger Logger) (values []V, ctlBytes []byte) {
	if len(elems) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = nopLogger{}
	}

	consumed := make([]bool, len(elems))
	anchorAt := make(map[int]Instance, len(instances))
	for _, inst := range instances {
		if !instanceFits(inst) {
			logger.Warnf("ctl: demoting unrepresentable pattern instance (%s, %d elements) to delta units", inst.Kind.Key(), len(inst.Indices))
			continue
		}
		if len(inst.Indices) < minUnitSize {
			continue
		}
		anchorAt[inst.Indices[0]] = inst
		for _, idx := range inst.Indices {
			consumed[idx] = true
		}
	}

	values = make([]V, 0, len(elems))
	ctlBytes = make([]byte, 0, len(elems)*2)
	st := &builderState{}

	i := 0
	for i < len(elems) {
		if inst, ok := anchorAt[i]; ok {
			members := make([]reorder.Element[V], len(inst.Indices))
			for k, idx := range inst.Indices {
				members[k] = elems[idx]
			}
			emitUnit(&values, &ctlBytes, catalog, inst.Kind, members, st)
			i++
			continue
		}
		if consumed[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(elems) && !consumed[j] && elems[j].Row == elems[i].Row {
			j++
		}
		emitDeltaRun(&values, &ctlBytes, catalog, elems[i:j], st)
		i = j
	}
	return values, ctlBytes
}

// instanceFits reports whether inst can be represented as a single unit:
// size within [1,255]. Block patterns never exceed this (spec.md §3 caps
// block dimensions at 8×8 = 64), so only Delta/Diag/AntiDiag runs can be
// demoted.
func instanceFits(inst Instance) bool {
	return len(inst.Indices) > 0 && len(inst.Indices) <= MaxUnitSize
}

// emitDeltaRun encodes a maximal run of unencoded, same-row elements as one
// or more Delta-δ units, splitting at MaxUnitSize without resetting column
// context (spec.md §4.C's "Sizing discipline").
func emitDeltaRun[V reorder.Numeric](values *[]V, ctlBytes *[]byte, catalog *Catalog, run []reorder.Element[V], st *builderState) {
	for k := 0; k < len(run); {
		end := k + MaxUnitSize
		if end > len(run) {
			end = len(run)
		}
		chunk := run[k:end]
		w := widthForRun(chunk)
		emitUnit(values, ctlBytes, catalog, DeltaKind(w), chunk, st)
		k = end
	}
}

// widthForRun returns the narrowest Width that fits every consecutive
// column delta within chunk.
func widthForRun[V reorder.Numeric](chunk []reorder.Element[V]) Width {
	w := Width8
	for i := 1; i < len(chunk); i++ {
		d := chunk[i].Col - chunk[i-1].Col
		if need := WidthFor(d); need > w {
			w = need
		}
	}
	return w
}

// emitUnit appends one complete ctl unit (header, optional row jump,
// column, pattern body) for members and their values, advancing st to
// reflect the decode cursor's state after this unit.
func emitUnit[V reorder.Numeric](values *[]V, ctlBytes *[]byte, catalog *Catalog, kind Kind, members []reorder.Element[V], st *builderState) {
	id := catalog.IDFor(kind)
	firstRow := members[0].Row

	nr := firstRow != st.prevRow
	rjmp := nr && firstRow != st.prevRow+1

	*ctlBytes = append(*ctlBytes, MakeFlag(id, nr, rjmp), byte(len(members)))
	if rjmp {
		*ctlBytes = AppendUvarint(*ctlBytes, firstRow-st.prevRow)
	}
	if nr {
		*ctlBytes = AppendUvarint(*ctlBytes, members[0].Col)
	} else {
		*ctlBytes = AppendUvarint(*ctlBytes, members[0].Col-st.prevCol)
	}

	switch kind.Tag {
	case TagBlock:
		// A block window is never permanently advanced (spec.md §4.G):
		// the decode cursor resumes right where it started.
		for _, m := range members {
			*values = append(*values, m.Value)
		}
		st.prevRow, st.prevCol = firstRow, members[0].Col
	case TagDelta:
		// A delta run genuinely advances the column cursor along the row
		// it occupies; the next unit's column, if it continues the same
		// row, is a delta from this run's last column.
		*values = append(*values, members[0].Value)
		pad := AlignPad(len(*ctlBytes), kind.Delta)
		*ctlBytes = append(*ctlBytes, make([]byte, pad)...)
		prevCol := members[0].Col
		for k := 1; k < len(members); k++ {
			buf := make([]byte, kind.Delta.Bytes())
			PutDelta(buf, members[k].Col-prevCol, kind.Delta)
			*ctlBytes = append(*ctlBytes, buf...)
			*values = append(*values, members[k].Value)
			prevCol = members[k].Col
		}
		st.prevRow, st.prevCol = firstRow, prevCol
	case TagDiag, TagAntiDiag:
		// Diagonal runs cross rows transiently; spec.md §4.G calls for
		// "restore y_cursor at unit end", which this builder reads as a
		// full cursor restore (row and column) so the next unit's NR/RJMP
		// and column-delta logic is computed against the pre-unit state,
		// symmetric with the decoder (internal/ctl.Decoder).
		*values = append(*values, members[0].Value)
		pad := AlignPad(len(*ctlBytes), kind.Delta)
		*ctlBytes = append(*ctlBytes, make([]byte, pad)...)
		prevCol := members[0].Col
		for k := 1; k < len(members); k++ {
			buf := make([]byte, kind.Delta.Bytes())
			if kind.Tag == TagAntiDiag {
				PutSignedDelta(buf, int64(members[k].Col)-int64(prevCol), kind.Delta)
			} else {
				PutDelta(buf, members[k].Col-prevCol, kind.Delta)
			}
			*ctlBytes = append(*ctlBytes, buf...)
			*values = append(*values, members[k].Value)
			prevCol = members[k].Col
		}
		st.prevRow, st.prevCol = firstRow, members[0].Col
	}
}
