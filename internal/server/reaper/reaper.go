// Package reaper reclaims storage held by expired transfers and drops stale
// refresh tokens on a cron schedule. Expiry is enforced at read time, so the
// reaper never decides whether a link still works.
package reaper

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/vaultdrop/internal/logging"
	"github.com/robfig/cron/v3"
)

// TransferPurger is implemented by services.TransferService.
type TransferPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// TokenPurger is implemented by services.UserService.
type TokenPurger interface {
	PurgeRefreshTokens(ctx context.Context) (int64, error)
}

type Reaper struct {
	transfers TransferPurger
	tokens    TokenPurger
	log       logging.Logger
	cron      *cron.Cron

	// guards against overlapping sweeps when one runs longer than the interval
	mu sync.Mutex
}

// New registers a sweep on schedule, which accepts standard cron expressions
// and descriptors such as "@every 15m". An empty schedule disables the reaper
// and New returns nil.
func New(schedule string, transfers TransferPurger, tokens TokenPurger, log logging.Logger) (*Reaper, error) {
	if schedule == "" {
		return nil, nil
	}
	r := &Reaper{
		transfers: transfers,
		tokens:    tokens,
		log:       log.With("module", "reaper"),
		cron:      cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid reaper schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Sweep runs one purge pass. Errors are logged; the next tick retries.
func (r *Reaper) Sweep(ctx context.Context) {
	if !r.mu.TryLock() {
		r.log.Debug(ctx, "sweep already running, skipping")
		return
	}
	defer r.mu.Unlock()

	n, err := r.transfers.PurgeExpired(ctx)
	if err != nil {
		r.log.Error(ctx, "purging expired transfers failed", "error", err, "purged", n)
	} else if n > 0 {
		r.log.Info(ctx, "purged expired transfers", "count", n)
	}

	if r.tokens == nil {
		return
	}
	m, err := r.tokens.PurgeRefreshTokens(ctx)
	if err != nil {
		r.log.Error(ctx, "purging refresh tokens failed", "error", err)
	} else if m > 0 {
		r.log.Info(ctx, "purged refresh tokens", "count", m)
	}
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running sweep to finish.
func (r *Reaper) Run(ctx context.Context) {
	r.cron.Start()
	r.log.Info(ctx, "reaper started")
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.log.Info(ctx, "reaper stopped")
}
