package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultPollInterval = 10 * time.Second
	maxBackoff          = 30 * time.Second
)

// refresher is the slice of *state.Store the poller drives.
type refresher interface {
	RefreshAll(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes the store. After
// consecutive failures the wait grows exponentially up to maxBackoff. It
// returns immediately.
func StartPoller(ctx context.Context, store refresher, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		failures := 0
		for {
			if err := store.RefreshAll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Warn().Err(err).Int("failures", failures).Msg("refresh failed")
			} else {
				if failures > 0 {
					log.Info().Int("failures", failures).Msg("backend reachable again")
				}
				failures = 0
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// calculateBackoff doubles base once per consecutive failure. The result never
// exceeds maxBackoff unless base itself does.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	ceiling := max(maxBackoff, base)
	d := base
	for range failures {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}
