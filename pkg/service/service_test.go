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

package service

import (
	"context"
	"testing"
	"time"
)

type blocker struct{ stopped chan struct{} }

func (b *blocker) Run(ctx context.Context) {
	<-ctx.Done()
	close(b.stopped)
}

type panicker struct{}

func (panicker) Run(ctx context.Context) { panic("i2c bus missing") }

func wait(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case code := <-ch:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
		return 0
	}
}

func TestStartCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &blocker{stopped: make(chan struct{})}
	exit := Start(ctx, cancel, []Runnable{b})

	cancel()
	if code := wait(t, exit); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	<-b.stopped
}

func TestStartPanicCancelsOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &blocker{stopped: make(chan struct{})}
	exit := Start(ctx, cancel, []Runnable{b, panicker{}})

	if code := wait(t, exit); code != -1 {
		t.Fatalf("exit code = %d", code)
	}
	select {
	case <-b.stopped:
	default:
		t.Fatal("other service still running")
	}
}
