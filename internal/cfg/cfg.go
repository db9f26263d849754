// Package cfg implements the environment-driven configuration of
// spec.md §6: the same key table the library reads at tune/matvec time,
// resolved the way original_source/spm_csrdu.c's set_params resolves
// its own tunables — os.Getenv with a typed default when unset — except
// generalized from set_params' five scalar knobs to spec.md's full key
// table, including the list-valued AFFINITY and XFORM_CONF keys.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tabac/sparsex/internal/reorder"
)

// Config is the library-wide tunable set spec.md §6 names. Any field may
// be left at its zero value and resolved later (e.g. NrThreads==0 means
// "use runtime.NumCPU()", resolved by the caller that actually knows the
// host's CPU count — this package has no opinion on it).
type Config struct {
	// NrThreads is spec.md's NR_THREADS: worker count.
	NrThreads int
	// Affinity is spec.md's AFFINITY: per-thread CPU pinning, length
	// NrThreads. Nil means "let the caller choose" (e.g. sequential
	// CPU ids 0..NrThreads-1).
	Affinity []int
	// XformConf is spec.md's XFORM_CONF: which traversals DRLE may try.
	XformConf []reorder.Order
	// Samples and SamplingPortion are spec.md's SAMPLES /
	// SAMPLING_PORTION: window-sampled analysis vs a full pass. A zero
	// SamplingPortion means "full pass".
	Samples         int
	SamplingPortion float64
	// MatrixSymmetric is spec.md's MATRIX_SYMMETRIC: enables the
	// symmetric build path.
	MatrixSymmetric bool
	// MinUnitSize is spec.md's MIN_UNIT_SIZE: the minimum pattern
	// instance length worth a dedicated unit; shorter instances are
	// degraded to delta runs (internal/ctl.Build's minUnitSize param).
	MinUnitSize int
	// CsxFile is spec.md's CSX_FILE: the destination path for mat_save.
	CsxFile string
}

// Default values used when an environment key is absent, mirroring
// spm_csrdu.c's *_DEF constants.
const (
	DefaultMinUnitSize = 4
	DefaultSamples     = 0
)

// FromEnv resolves a Config from the process environment, using
// DefaultMinUnitSize/DefaultSamples/a full pass for anything unset. It
// never fails on a missing key — only on a key present but malformed,
// mirroring spm_csrdu.c's "value if set, else default" shape with Go's
// explicit error return replacing atoi's silent zero-on-error.
func FromEnv() (Config, error) {
	var c Config
	var err error

	c.NrThreads, err = getIntDefault("NR_THREADS", 0, err)
	c.Affinity, err = getIntList("AFFINITY", err)
	c.XformConf, err = getOrderList("XFORM_CONF", err)
	c.Samples, err = getIntDefault("SAMPLES", DefaultSamples, err)
	c.SamplingPortion, err = getFloatDefault("SAMPLING_PORTION", 0, err)
	c.MatrixSymmetric, err = getBoolDefault("MATRIX_SYMMETRIC", false, err)
	c.MinUnitSize, err = getIntDefault("MIN_UNIT_SIZE", DefaultMinUnitSize, err)
	c.CsxFile = os.Getenv("CSX_FILE")

	if err != nil {
		return Config{}, err
	}
	if len(c.Affinity) > 0 && c.NrThreads > 0 && len(c.Affinity) != c.NrThreads {
		return Config{}, fmt.Errorf("cfg: AFFINITY has %d entries, NR_THREADS=%d", len(c.Affinity), c.NrThreads)
	}
	return c, nil
}

func getIntDefault(key string, def int, prior error) (int, error) {
	if prior != nil {
		return 0, prior
	}
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("cfg: %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getFloatDefault(key string, def float64, prior error) (float64, error) {
	if prior != nil {
		return 0, prior
	}
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("cfg: %s=%q: %w", key, v, err)
	}
	return f, nil
}

func getBoolDefault(key string, def bool, prior error) (bool, error) {
	if prior != nil {
		return false, prior
	}
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("cfg: %s=%q: %w", key, v, err)
	}
	return b, nil
}

func getIntList(key string, prior error) ([]int, error) {
	if prior != nil {
		return nil, prior
	}
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("cfg: %s=%q: %w", key, v, err)
		}
		out[i] = n
	}
	return out, nil
}

func getOrderList(key string, prior error) ([]reorder.Order, error) {
	if prior != nil {
		return nil, prior
	}
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]reorder.Order, len(parts))
	for i, p := range parts {
		o, err := ParseOrder(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("cfg: %s=%q: %w", key, v, err)
		}
		out[i] = o
	}
	return out, nil
}

// ParseOrder parses one XFORM_CONF entry: "row", "col", "diag",
// "antidiag", or "blockr:N" / "blockc:N" for a block traversal of size N
// (N in [2,8], per spec.md §3).
func ParseOrder(s string) (reorder.Order, error) {
	name, arg, hasArg := strings.Cut(s, ":")
	switch name {
	case "row":
		return reorder.Row, nil
	case "col":
		return reorder.Col, nil
	case "diag":
		return reorder.Diag, nil
	case "antidiag":
		return reorder.AntiDiag, nil
	case "blockr", "blockc":
		if !hasArg {
			return reorder.Order{}, fmt.Errorf("cfg: order %q needs a block size, e.g. %q", s, name+":4")
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return reorder.Order{}, fmt.Errorf("cfg: order %q: %w", s, err)
		}
		if n < 2 || n > 8 {
			return reorder.Order{}, fmt.Errorf("cfg: order %q: block size must be in [2,8]", s)
		}
		if name == "blockr" {
			return reorder.BlockR(n), nil
		}
		return reorder.BlockC(n), nil
	default:
		return reorder.Order{}, fmt.Errorf("cfg: unknown order %q", s)
	}
}
