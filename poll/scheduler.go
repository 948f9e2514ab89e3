/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/ivywatch/internal/logging"
)

// DefaultInterval is the polling interval used when none is set.
const DefaultInterval = 5 * time.Minute

// Scheduler polls triggers periodically until its context is cancelled.
// Each trigger is polled by its own goroutine, so cycles of one trigger
// never overlap; a tick arriving while a cycle runs is dropped.
type Scheduler struct {
	Interval time.Duration
	// OnChange is called after a cycle that detected a change.
	OnChange func(ctx context.Context, name string) error
	Logger   *slog.Logger
}

// Run polls every trigger immediately and then on every tick. It returns
// when ctx is done.
func (s *Scheduler) Run(ctx context.Context, triggers ...Trigger) error {
	if len(triggers) == 0 {
		return fmt.Errorf("poll: nothing to schedule")
	}
	var g errgroup.Group
	for _, t := range triggers {
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Trigger) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.cycle(ctx, t)
		// drop the tick that may have arrived during the cycle
		select {
		case <-ticker.C:
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one poll. Failures and panics are logged; they never stop
// the schedule.
func (s *Scheduler) cycle(ctx context.Context, t Trigger) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("polling cycle panicked", "job", t.Name(), "panic", r)
		}
	}()

	if ctx.Err() != nil {
		return
	}
	result, err := t.Poll(ctx)
	if err != nil {
		logger.Error("polling cycle failed", "job", t.Name(), "error", err)
		return
	}
	if result.Changed && s.OnChange != nil {
		if err := s.OnChange(ctx, t.Name()); err != nil {
			logger.Error("change handler failed", "job", t.Name(), "error", err)
		}
	}
}
