package tap

import (
	"context"

	errs "tap-instagram/pkg/errors"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitRuntimeError  = 1
	ExitConfiguration = 2
)

// ExitCode maps a run error to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errs.IsConfiguration(err):
		return ExitConfiguration
	default:
		return ExitRuntimeError
	}
}

// Run builds a tap from opts, syncs it and returns the exit code.
func Run(ctx context.Context, opts Options) (int, error) {
	t, err := New(opts)
	if err != nil {
		return ExitCode(err), err
	}

	err = t.Finish(t.Run(ctx))
	return ExitCode(err), err
}
