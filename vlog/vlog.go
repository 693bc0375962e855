// Package vlog configures the verifier's structured logging: a custom
// slog.Level tier below Info for per-cycle trace records, left disabled
// unless -v is passed.
package vlog

import (
	"context"
	"log/slog"
	"os"

	"github.com/cassiersg/matchi-go/vfyerr"
)

// LevelTrace is a custom level for per-cycle detail, one tier below Info —
// too noisy to print by default, useful under -v.
const LevelTrace slog.Level = slog.LevelInfo - 1

// Init installs the process-wide default logger. verbose lowers the
// threshold to LevelTrace; otherwise only Info and above are printed.
func Init(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = LevelTrace
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// Trace logs a per-cycle record at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Violation logs a safety-check (or configuration/structural) failure at
// Error level, one record per fatal error raised during a run.
func Violation(err error) {
	var ve *vfyerr.Error
	if vfyerr.As(err, &ve) {
		slog.Error("verification failed", "kind", ve.Kind, "location", ve.Frame.String(), "message", ve.Msg)
		return
	}
	slog.Error("verification failed", "error", err)
}

// Warn logs a non-fatal diagnostic at Warn level, one record per warning
// the run continues past.
func Warn(w vfyerr.Warning) {
	slog.Warn(w.Msg, "location", w.Frame.String())
}
