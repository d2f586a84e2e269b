package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ExecOptions control how a plan is executed.
type ExecOptions[V comparable] struct {
	// MaxConcurrent bounds the number of outstanding writes,
	// DefaultMaxConcurrent if not positive.
	MaxConcurrent int

	// DryRun reports every update as would_update without writing.
	DryRun bool

	// ContinueOnError keeps dispatching after a failed write. Without it, no
	// further item is started once a write failed; writes already in flight
	// run to completion.
	ContinueOnError bool

	Observer Observer

	// Format renders values in outcome details, fmt.Sprint if nil.
	Format func(V) string

	Log *zerolog.Logger
}

// Execute applies updates with at most opts.MaxConcurrent concurrent calls
// of apply.
//
// Outcomes are aggregated in completion order by the calling goroutine. A
// worker slot is only handed back after its outcome has been aggregated, so
// once a failure stopped dispatching, no item is started afterwards.
func Execute[V comparable](ctx context.Context, updates []Update[V], apply ApplyFunc[V], opts ExecOptions[V]) *Result {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	format := opts.Format
	if format == nil {
		format = func(v V) string { return fmt.Sprint(v) }
	}

	log := opts.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	agg := newAggregator(opts.Observer)

	// dispatch only gates the start of new items, writes run on ctx.
	dispatch, stop := context.WithCancel(ctx)
	defer stop()

	sem := semaphore.NewWeighted(int64(limit))
	outcomes := make(chan Outcome)

	go func() {
		defer close(outcomes)

		var g errgroup.Group
		for _, u := range updates {
			if err := sem.Acquire(dispatch, 1); err != nil {
				break
			}
			if dispatch.Err() != nil {
				sem.Release(1)
				break
			}

			g.Go(func() error {
				outcomes <- executeOne(ctx, u, apply, opts.DryRun, format)
				return nil
			})
		}
		_ = g.Wait()
	}()

	for o := range outcomes {
		agg.add(o)

		if o.Status == StatusFailed {
			log.Warn().Str("index", o.Index).Str("error", o.Detail).Msg("update failed")
			if !opts.ContinueOnError && !opts.DryRun && dispatch.Err() == nil {
				log.Warn().Msg("stopping after first failure, remaining indices are not attempted")
				stop()
			}
		}

		sem.Release(1)
	}

	result := agg.finish()
	result.Cancelled = result.TotalProcessed < len(updates)

	return result
}

func executeOne[V comparable](ctx context.Context, u Update[V], apply ApplyFunc[V], dryRun bool, format func(V) string) Outcome {
	change := format(u.Current) + " -> " + format(u.Target)

	if dryRun {
		return Outcome{Index: u.Index.Name, Status: StatusWouldUpdate, Detail: "would set " + change}
	}

	err := apply(ctx, u.Index.Name, u.Current, u.Target)
	switch {
	case err == nil:
		return Outcome{Index: u.Index.Name, Status: StatusSuccess, Detail: change}
	case errors.Is(err, ErrSkip):
		return Outcome{Index: u.Index.Name, Status: StatusSkipped, Detail: err.Error()}
	default:
		return Outcome{Index: u.Index.Name, Status: StatusFailed, Detail: err.Error()}
	}
}
