package reconcile

import (
	"github.com/okian/hockeyplots/pkg/logger"
)

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithScoreBackfill controls whether a known game without a score may take
// its score once the feed reports it final. Disable for a strictly
// insert-only ledger.
func WithScoreBackfill(enabled bool) Option {
	return func(r *Reconciler) {
		r.backfill = enabled
	}
}
