package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cpcf/treegen/write"
)

// createDirectories creates every planned directory concurrently. Creation
// is idempotent, so order does not matter. Any failure fails the run
// regardless of the failure mode.
func (e *Engine) createDirectories(ctx context.Context, logger *slog.Logger, dirs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if err := write.EnsureDir(dir); err != nil {
				logger.Error("failed to create output directory", "path", dir, "error", err)
				kind := KindIO
				if errors.Is(err, write.ErrPathConflict) {
					kind = KindPathConflict
				}
				return newError(kind, "", dir, err)
			}

			logger.Debug("ensured directory", "path", dir)
			return nil
		})
	}

	return g.Wait()
}

// processAll runs process for every job with bounded parallelism and
// applies the engine's failure mode. done is called for each job that
// succeeded.
func (e *Engine) processAll(ctx context.Context, logger *slog.Logger, jobs []job, done func(job), process func(job) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var mu sync.Mutex
	var multiErr MultiError

	for _, j := range jobs {
		g.Go(func() error {
			// In FailFast mode this also skips jobs queued behind a failure.
			if err := gctx.Err(); err != nil {
				return err
			}

			err := process(j)
			if err == nil {
				done(j)
				return nil
			}

			if e.failMode == FailFast {
				return err
			}

			var engErr *Error
			if !errors.As(err, &engErr) {
				engErr = newError(KindIO, j.key, j.path, err)
			}
			mu.Lock()
			multiErr.Add(engErr)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if !multiErr.HasErrors() {
		return nil
	}

	sort.Slice(multiErr.Errors, func(i, k int) bool {
		return multiErr.Errors[i].Key < multiErr.Errors[k].Key
	})

	if e.failMode == BestEffort {
		logger.Warn("run finished with errors", "failed", len(multiErr.Errors))
		return nil
	}

	return &multiErr
}
