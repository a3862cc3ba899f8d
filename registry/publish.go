package registry

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/schema"
	"github.com/drpcorg/binmeta/utils"
)

type PublishOptions struct {
	Logger utils.Logger
	// Backoff between retries, doubled per retry up to MaxBackoff.
	// The first retry after a stale outcome is immediate.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func (o *PublishOptions) SetDefaults() {
	if o.MinBackoff <= 0 {
		o.MinBackoff = 50 * time.Microsecond
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = 10 * time.Millisecond
		if o.MaxBackoff < o.MinBackoff {
			o.MaxBackoff = o.MinBackoff
		}
	}
}

// Publish merges a session's update into reg and returns the snapshot
// the registry holds afterwards. It loops until its fields are in: either
// its own candidate got swapped in, or somebody else already published
// all of them. A concurrently published contradicting definition ends the
// loop with a schema conflict.
func Publish(ctx context.Context, reg Registry, upd Update, opts PublishOptions) (*schema.Snapshot, error) {
	opts.SetDefaults()
	expected, candidate := upd.Origin, upd.Updated
	if candidate == nil || candidate == expected {
		return expected, nil
	}
	backoff := time.Duration(0)
	for attempt := 1; ; attempt++ {
		current, ok, err := reg.TryPublish(ctx, expected, candidate)
		if err != nil {
			PublishResults.WithLabelValues("error").Inc()
			return nil, err
		}
		if ok {
			PublishResults.WithLabelValues("ok").Inc()
			PublishAttempts.Observe(float64(attempt))
			if opts.Logger != nil {
				opts.Logger.InfoCtx(ctx, "type published",
					"type", candidate.TypeName(), "type_id", candidate.TypeID(),
					"revision", candidate.Revision(), "fields", candidate.Len(), "attempts", attempt)
			}
			return candidate, nil
		}
		PublishResults.WithLabelValues("stale").Inc()

		base, added := current, upd.Added
		if base == nil {
			base = schema.Empty(upd.Origin.TypeID(), upd.Origin.TypeName())
			added = slices.Collect(upd.Updated.Fields())
		}
		merged, err := schema.Merge(base, added)
		if err != nil {
			if errors.Is(err, binmeta_errors.ErrSchemaConflict) {
				PublishConflicts.Inc()
				if opts.Logger != nil {
					opts.Logger.WarnCtx(ctx, "concurrent schema conflict", "err", err)
				}
			}
			return nil, err
		}
		if merged == base {
			PublishAttempts.Observe(float64(attempt))
			return base, nil
		}
		expected, candidate = base, merged
		PublishRetries.Inc()
		if opts.Logger != nil {
			opts.Logger.DebugCtx(ctx, "publish retry",
				"type_id", base.TypeID(), "current_revision", base.Revision(), "attempt", attempt)
		}
		if attempt > 1 {
			backoff = min(max(backoff*2, opts.MinBackoff), opts.MaxBackoff)
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d += rand.N(d/2 + 1)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
