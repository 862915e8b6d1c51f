package gameloop

import (
	"context"
	"errors"
	"time"
)

// Loop calls Step at a fixed interval, the way an engine runs its fixed
// update. Steps never overlap; a slow step delays the next one.
type Loop struct {
	Interval time.Duration
	Step     func()
}

func New(interval time.Duration, step func()) *Loop {
	return &Loop{Interval: interval, Step: step}
}

// Run steps until ctx is done and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return errors.New("gameloop: interval must be positive")
	}
	if l.Step == nil {
		return errors.New("gameloop: no step function")
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			l.Step()
		}
	}
}
