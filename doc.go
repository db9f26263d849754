// Package sparsex implements the Compressed Sparse eXtended (CSX)
// engine: it tunes a sparse matrix into a compact, pattern-aware
// representation and executes the sparse matrix–vector product
// y ← βy + αAx in parallel across a fixed, CPU-pinned worker pool.
//
// The public surface mirrors spec.md §6: load a matrix with
// InputLoadCSR/InputLoadMMF, tune it with MatTune, run products with
// MatVec, persist it with MatSave/MatRestore, and inspect or edit
// individual entries with MatGetEntry/MatSetEntry. Everything below the
// public surface — substructure detection, bit-packed encoding, NUMA
// placement, the thread pool, the decode-dispatch kernel — lives in
// internal packages and is described in DESIGN.md.
package sparsex
