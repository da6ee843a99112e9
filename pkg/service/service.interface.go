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
	"runtime/debug"
	"sync"
	"sync/atomic"

	"thermonode/pkg/logger"
)

// Runnable is the common interface for all services. Run blocks until ctx
// is done.
type Runnable interface {
	Run(ctx context.Context)
}

// Start runs every service on its own goroutine. A panic in any of them is
// logged, cancels the shared context and makes the exit code -1. The
// returned channel yields the exit code once all services have returned.
func Start(ctx context.Context, ctxCancel context.CancelFunc, services []Runnable) <-chan int {
	wg := &sync.WaitGroup{}

	var exitCode atomic.Int32
	var exitCh = make(chan int, 1)

	log := logger.New("Panic")

	for _, s := range services {
		service := s
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("%T: %v\n%s", service, r, debug.Stack())
					exitCode.Store(-1)
					ctxCancel()
				}
			}()
			service.Run(ctx)
		})
	}

	go func() {
		// wait for for all services to stop
		wg.Wait()
		exitCh <- int(exitCode.Load())
	}()

	return exitCh
}
