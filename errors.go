package sparsex

import "fmt"

// Kind tags the category of a library Error, spec.md §7's "tagged, not
// exceptions" error design.
type Kind int

const (
	// ArgInvalid is a caller-supplied bad dimension, null buffer, or bad
	// indexing.
	ArgInvalid Kind = iota
	// OutOfBounds is a row/col outside [0, nrows)×[0, ncols).
	OutOfBounds
	// FileIo is a missing or unreadable path.
	FileIo
	// InputMat is a malformed MMF/CSR input (unsorted rows, wrong nnz
	// count).
	InputMat
	// TunedMat is a tune failure (OOM in the partitioner/NUMA layer).
	TunedMat
	// EntryNotFound is a MatGetEntry/MatSetEntry miss.
	EntryNotFound
	// DimMismatch is a vector/matrix dimension disagreement.
	DimMismatch
)

func (k Kind) String() string {
	switch k {
	case ArgInvalid:
		return "ArgInvalid"
	case OutOfBounds:
		return "OutOfBounds"
	case FileIo:
		return "FileIo"
	case InputMat:
		return "InputMat"
	case TunedMat:
		return "TunedMat"
	case EntryNotFound:
		return "EntryNotFound"
	case DimMismatch:
		return "DimMismatch"
	default:
		return "Unknown"
	}
}

// Error is the library's tagged error type. Every boundary operation
// that can fail returns one of these (or nil), never a bare string or a
// panic (spec.md §7: "All boundary operations return a result type").
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any; may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sparsex: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("sparsex: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, sparsex.EntryNotFound) style checks via
// errors.Is(err, &sparsex.Error{Kind: sparsex.EntryNotFound}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}
