// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package clock provides the monotonic uptime clock and cancellable sleep
// used by the control loop, with a manual implementation for tests.
package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	// Now returns the monotonic time since boot.
	Now() time.Duration
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type system struct {
	boot time.Time
}

// System returns a Clock whose zero is the moment it was created.
func System() Clock {
	return &system{boot: time.Now()}
}

func (s *system) Now() time.Duration { return time.Since(s.boot) }

func (s *system) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Manual is a Clock that only moves when told to. Sleep advances it
// instantly and records the requested duration.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration

	// OnSleep, if set, runs after each Sleep with the new time.
	OnSleep func(now time.Duration)
}

func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.now += d
	m.sleeps = append(m.sleeps, d)
	now, hook := m.now, m.OnSleep
	m.mu.Unlock()
	if hook != nil {
		hook(now)
	}
	return nil
}

// Sleeps returns every duration passed to Sleep so far.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}
