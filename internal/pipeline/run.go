// Package pipeline provides the high-level orchestration for batch scraping runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gonfdez/minipc-agent/internal/db"
	"github.com/gonfdez/minipc-agent/internal/types"
)

// DefaultTargetTimeout bounds how long one target may take end to end
// (render, clean, model call, persist).
const DefaultTargetTimeout = 3 * time.Minute

// PageConverter renders a target page and returns its cleaned content.
type PageConverter interface {
	Convert(ctx context.Context, url, brand string) (string, error)
	IsAlreadyProcessed(url, brand string) bool
}

// RecordExtractor turns cleaned content into a structured record.
type RecordExtractor interface {
	Extract(ctx context.Context, url, brand, content string) (*types.MiniPC, error)
}

// Store persists extracted records. A nil Store runs the batch file-only.
type Store interface {
	SaveMiniPC(ctx context.Context, rec *types.MiniPC) (uuid.UUID, error)
}

// RunOptions holds configuration for running a batch.
type RunOptions struct {
	Targets         []types.Target
	Converter       PageConverter
	Extractor       RecordExtractor
	Store           Store // optional
	RefreshExisting bool  // re-process targets with cached cleaned content
	TargetTimeout   time.Duration
	Logger          *slog.Logger
}

// TargetFailure records one target that did not produce a saved record.
type TargetFailure struct {
	Target types.Target
	Err    error
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Attempted int
	Skipped   int
	Saved     int
	Failed    int
	Conflicts int
	Failures  []TargetFailure
	Elapsed   time.Duration
}

// Run processes targets sequentially through the browser session. A failing
// target is logged and recorded in the summary; the batch moves on. The run
// stops early only when ctx is canceled, and the summary built so far is
// still returned alongside the context error.
func Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	timeout := opts.TargetTimeout
	if timeout <= 0 {
		timeout = DefaultTargetTimeout
	}

	summary := &Summary{}
	start := time.Now()

	for _, target := range opts.Targets {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("batch canceled after %d targets: %w", summary.Attempted+summary.Skipped, err)
		}

		if !opts.RefreshExisting && opts.Converter.IsAlreadyProcessed(target.URL, target.Brand) {
			logger.Info("skipping already-processed target", "url", target.URL, "brand", target.Brand)
			summary.Skipped++
			continue
		}

		summary.Attempted++
		if err := runTarget(ctx, &opts, target, timeout); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, TargetFailure{Target: target, Err: err})
			if errors.Is(err, db.ErrModelConflict) {
				summary.Conflicts++
				logger.Warn("duplicate model requires manual resolution", "url", target.URL, "error", err)
			} else {
				logger.Error("target failed", "url", target.URL, "brand", target.Brand, "error", err)
			}
			continue
		}
		summary.Saved++
		logger.Info("target processed", "url", target.URL, "brand", target.Brand)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// runTarget processes one target under its own timeout.
func runTarget(ctx context.Context, opts *RunOptions, target types.Target, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := opts.Converter.Convert(tctx, target.URL, target.Brand)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	record, err := opts.Extractor.Extract(tctx, target.URL, target.Brand, content)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if opts.Store != nil {
		if _, err := opts.Store.SaveMiniPC(tctx, record); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}

	return nil
}
