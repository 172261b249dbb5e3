package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is satisfied by every Store.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunSweeper calls Sweep on each named store every interval until ctx ends.
// onSwept, when set, receives the removal count per store name.
func RunSweeper(ctx context.Context, interval time.Duration, logger *zerolog.Logger, onSwept func(name string, removed int), stores map[string]Sweeper) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, s := range stores {
				removed, err := s.Sweep(ctx)
				if err != nil {
					logger.Error().Err(err).Str("store", name).Msg("session sweep failed")
					continue
				}
				if removed > 0 {
					logger.Debug().Str("store", name).Int("removed", removed).Msg("expired sessions removed")
					if onSwept != nil {
						onSwept(name, removed)
					}
				}
			}
		}
	}
}
