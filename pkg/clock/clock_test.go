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

package clock

import (
	"context"
	"testing"
	"time"
)

func TestSystemSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := System().Sleep(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("Sleep = %v, want context.Canceled", err)
	}
}

func TestSystemNowMonotonic(t *testing.T) {
	c := System()
	a := c.Now()
	if err := c.Sleep(context.Background(), 2*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if b := c.Now(); b <= a {
		t.Fatalf("Now did not advance: %v then %v", a, b)
	}
}

func TestManual(t *testing.T) {
	var m Manual
	var hooked time.Duration
	m.OnSleep = func(now time.Duration) { hooked = now }

	m.Advance(time.Second)
	m.Sleep(context.Background(), 5*time.Second)

	if m.Now() != 6*time.Second || hooked != 6*time.Second {
		t.Fatalf("now=%v hooked=%v", m.Now(), hooked)
	}
	if s := m.Sleeps(); len(s) != 1 || s[0] != 5*time.Second {
		t.Fatalf("sleeps = %v", s)
	}
}
