package main

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestSyntheticBandedRowptrMonotonic(t *testing.T) {
	rowptr, colind, values := syntheticBanded(32, false, rand.New(rand.NewSource(7)))
	if len(rowptr) != 33 {
		t.Fatalf("len(rowptr) = %d, want 33", len(rowptr))
	}
	for i := 1; i < len(rowptr); i++ {
		if rowptr[i] < rowptr[i-1] {
			t.Fatalf("rowptr not non-decreasing at %d: %d < %d", i, rowptr[i], rowptr[i-1])
		}
	}
	if uint64(len(colind)) != rowptr[len(rowptr)-1] || uint64(len(values)) != rowptr[len(rowptr)-1] {
		t.Fatalf("colind/values length does not match rowptr's declared nnz")
	}
	for r := 0; r < 32; r++ {
		for k := rowptr[r]; k < rowptr[r+1]; k++ {
			if colind[k] >= 32 {
				t.Errorf("row %d has out-of-range column %d", r, colind[k])
			}
		}
	}
}

func TestSyntheticBandedSymmetricKeepsLowerTriangleOnly(t *testing.T) {
	rowptr, colind, _ := syntheticBanded(16, true, rand.New(rand.NewSource(3)))
	for r := 0; r < 16; r++ {
		for k := rowptr[r]; k < rowptr[r+1]; k++ {
			if colind[k] > uint64(r) {
				t.Errorf("symmetric row %d has an upper-triangle entry at col %d", r, colind[k])
			}
		}
	}
}

func TestCsrMatVecIdentity(t *testing.T) {
	rowptr := []uint64{0, 1, 2, 3}
	colind := []uint64{0, 1, 2}
	values := []float64{2, 3, 4}
	x := []float64{1, 1, 1}

	y := csrMatVec(rowptr, colind, values, 3, false, x)
	want := []float64{2, 3, 4}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestCsrMatVecSymmetricMirrorsOffDiagonal(t *testing.T) {
	// Lower-triangle-only storage of [[2,1],[1,3]]: one off-diagonal entry
	// at (1,0) must contribute to both y[0] and y[1].
	rowptr := []uint64{0, 1, 3}
	colind := []uint64{0, 0, 1}
	values := []float64{2, 1, 3}
	x := []float64{1, 1}

	y := csrMatVec(rowptr, colind, values, 2, true, x)
	if y[0] != 3 || y[1] != 4 {
		t.Errorf("y = %v, want [3 4]", y)
	}
}

func TestCheckCloseAcceptsWithinTolerance(t *testing.T) {
	got := []float64{1.0000000000001, 2}
	want := []float64{1, 2}
	if err := checkClose(got, want); err != nil {
		t.Errorf("checkClose within tolerance returned %v, want nil", err)
	}
}

func TestCheckCloseRejectsOutsideTolerance(t *testing.T) {
	got := []float64{1.1, 2}
	want := []float64{1, 2}
	if err := checkClose(got, want); err == nil {
		t.Error("checkClose with a 10% deviation should fail")
	}
}

func TestExitCodeDistinguishesArgErrorFromOthers(t *testing.T) {
	if got := exitCode(newArgError("bad --size")); got != 1 {
		t.Errorf("exitCode(argError) = %d, want 1", got)
	}
	if got := exitCode(fmt.Errorf("numerical check failed")); got != 2 {
		t.Errorf("exitCode(plain error) = %d, want 2", got)
	}
	wrapped := fmt.Errorf("wrapping: %w", newArgError("bad --threads"))
	if got := exitCode(wrapped); got != 1 {
		t.Errorf("exitCode(wrapped argError) = %d, want 1 (Unwrap chain must be followed)", got)
	}
}

func TestRunRejectsNonPositiveSize(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{"--size", "0"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an argument error for --size=0")
	}
	if exitCode(err) != 1 {
		t.Errorf("exitCode = %d, want 1", exitCode(err))
	}
	var ae argError
	if !errors.As(err, &ae) {
		t.Errorf("error chain does not contain an argError: %v", err)
	}
}

func TestRunEndToEndPasses(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{"--size", "40", "--threads", "3", "--seed", "5"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRunSymmetricEndToEndPasses(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{"--size", "40", "--threads", "2", "--symmetric", "--seed", "9"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("symmetric run failed: %v", err)
	}
}

func TestTuneEndToEndReportsAllPartitions(t *testing.T) {
	cmd := newTuneCmd()
	cmd.SetArgs([]string{"--size", "24", "--threads", "4"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("tune failed: %v", err)
	}
}
