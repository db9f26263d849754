package sparsex

import "unsafe"

// unsafeBytes reinterprets values's backing array as a byte slice, purely
// so VecCreateInterleaved can hand byte ranges to numaalloc.BindPages;
// it never escapes this package and the returned slice must not outlive
// values.
func unsafeBytes[V any](values []V) []byte {
	if len(values) == 0 {
		return nil
	}
	var zero V
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*size)
}
