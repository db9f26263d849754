package sparsex

import "github.com/tabac/sparsex/internal/cfg"

// Logger receives the warning side channel of spec.md §7 (CsxFile,
// EntryNotSet) and is structurally compatible with every internal
// package's own Logger interface (internal/ctl.Logger, and so on) — no
// internal package imports this one, so the shape is simply duplicated,
// not shared, to keep the dependency graph one-directional.
type Logger interface {
	Warnf(format string, args ...any)
}

// nopLogger discards every warning; the default when Config.Logger is
// nil.
type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Config is the library-wide tunable set of spec.md §6, plus an optional
// Logger for the warning side channel.
type Config struct {
	cfg.Config
	Logger Logger
}

// ConfigFromEnv resolves a Config from the process environment, per
// spec.md §6's key table. Logger is left nil (set the Logger field
// directly to attach one).
func ConfigFromEnv() (Config, error) {
	inner, err := cfg.FromEnv()
	if err != nil {
		return Config{}, newErr(ArgInvalid, "ConfigFromEnv", err)
	}
	return Config{Config: inner}, nil
}

func (c Config) logger() Logger {
	if c.Logger == nil {
		return nopLogger{}
	}
	return c.Logger
}
