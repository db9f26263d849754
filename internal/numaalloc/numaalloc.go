// Package numaalloc implements the page-level NUMA placement of spec.md
// §4.D: binding a partition's ctl/values buffers, and the shared dense
// vectors built over all partitions, to the NUMA node owning the CPU that
// partition's worker thread is pinned to.
//
// Grounded on original_source/spm_csrdu.c's "#ifdef SPM_NUMA" block
// (numa_node_from_cpu, numa_alloc_onnode): that code links libnuma via
// cgo-equivalent C calls. Go has no portable libnuma binding, so this
// package re-expresses the same two operations — "which node owns this
// CPU" and "bind these pages to that node" — directly on top of the raw
// mbind(2) system call (unix.Syscall6 with unix.SYS_MBIND, from
// golang.org/x/sys/unix) and /sys/devices/system/node,
// with page-granularity falling naturally out of mbind's own contract
// instead of a hand-rolled page allocator.
package numaalloc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NodeOf returns the NUMA node that owns cpu, read from
// /sys/devices/system/node/node*/cpulist. It returns -1 if the topology
// cannot be determined (no /sys, restricted container, non-Linux) — the
// spec's required fallback: "If NUMA is unavailable, binding calls are
// skipped but the partition metadata remains valid."
func NodeOf(cpu int) int {
	nodes, err := filepath.Glob("/sys/devices/system/node/node[0-9]*")
	if err != nil {
		return -1
	}
	for _, dir := range nodes {
		base := filepath.Base(dir)
		node, err := strconv.Atoi(strings.TrimPrefix(base, "node"))
		if err != nil {
			continue
		}
		if cpuListContains(filepath.Join(dir, "cpulist"), cpu) {
			return node
		}
	}
	return -1
}

func cpuListContains(path string, cpu int) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false
	}
	for _, part := range strings.Split(strings.TrimSpace(scanner.Text()), ",") {
		if part == "" {
			continue
		}
		lo, hi, ok := parseRange(part)
		if ok && cpu >= lo && cpu <= hi {
			return true
		}
	}
	return false
}

func parseRange(s string) (lo, hi int, ok bool) {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		a, err1 := strconv.Atoi(s[:i])
		b, err2 := strconv.Atoi(s[i+1:])
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return a, b, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, false
	}
	return v, v, true
}

// Region describes one NUMA-bound byte range within a larger shared
// allocation, produced by InterleavedLayout.
type Region struct {
	Node        int
	ByteOffset  int
	ByteLength  int
	ElemOffset  int
	ElemLength  int
}

// InterleavedLayout computes the page-aligned byte ranges for nParts
// partitions of an nElems×elemSize contiguous allocation, per spec.md
// §4.D's vec_create_interleaved: "partition byte boundaries are shifted
// outward to the nearest page boundary, and each partition's effective
// length is reported back so SpMV indexes stay consistent." counts[i] is
// partition i's element count; nodes[i] its target NUMA node.
func InterleavedLayout(counts []int, nodes []int, elemSize, pageSize int) []Region {
	if pageSize <= 0 {
		pageSize = 4096
	}
	regions := make([]Region, len(counts))
	elemOff, byteOff := 0, 0
	for i, n := range counts {
		start := byteOff
		end := byteOff + n*elemSize
		// Shift this partition's end outward to the next page boundary,
		// except for the last partition, which simply runs to the
		// allocation's true end.
		if i < len(counts)-1 {
			end = roundUpToPage(end, pageSize)
		}
		regions[i] = Region{
			Node:       nodes[i],
			ByteOffset: start,
			ByteLength: end - start,
			ElemOffset: elemOff,
			ElemLength: (end - start) / elemSize,
		}
		elemOff += regions[i].ElemLength
		byteOff = end
	}
	return regions
}

func roundUpToPage(n, pageSize int) int {
	if n%pageSize == 0 {
		return n
	}
	return (n/pageSize + 1) * pageSize
}

// Error wraps a failed bind attempt; binding failures are never fatal
// (spec.md §4.D's fallback): VecCreateInterleaved discards the error and
// keeps the unbound allocation.
type Error struct {
	Node int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("numaalloc: bind to node %d failed: %v", e.Node, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
