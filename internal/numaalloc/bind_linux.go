//go:build linux

package numaalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mpolBind mirrors Linux's MPOL_BIND mode for mbind(2): pages in the
// given range must come from nodemask, with no fallback to other nodes.
const mpolBind = 2

// BindPages binds the pages backing buf to node, using mbind(2) with
// MPOL_BIND. buf need not be page-aligned; the kernel only affects whole
// pages overlapping the range, matching the historical numa_alloc_onnode
// behavior this replaces (that call always returned a whole-page-backed
// allocation to begin with).
func BindPages(buf []byte, node int) error {
	if len(buf) == 0 || node < 0 {
		return nil
	}
	var mask uint64
	if node >= 64 {
		return &Error{Node: node, Err: unix.EINVAL}
	}
	mask = 1 << uint(node)

	addr := uintptr(unsafe.Pointer(&buf[0]))
	_, _, errno := unix.Syscall6(unix.SYS_MBIND, addr, uintptr(len(buf)), uintptr(mpolBind), uintptr(unsafe.Pointer(&mask)), 64, 0)
	if errno != 0 {
		return &Error{Node: node, Err: errno}
	}
	return nil
}
