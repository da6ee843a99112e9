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

// Package netattach brings the node onto the local network before anything
// else runs. Attachment has no retry bound: without a network the node has
// nothing else to do.
package netattach

import (
	"context"
	"time"

	"thermonode/pkg/clock"
	"thermonode/pkg/logger"
)

// PollInterval is the delay between attachment status checks.
const PollInterval = 500 * time.Millisecond

type Credentials struct {
	SSID     string
	Password string
}

type Attacher interface {
	// Begin requests attachment. It may return before attachment completes.
	Begin(ctx context.Context, creds Credentials) error
	// Attached reports whether the node currently has a usable address.
	Attached() bool
	// LocalAddr returns the node's address once attached.
	LocalAddr() string
}

// Attach requests attachment and polls until it succeeds. It only returns
// early if ctx is done.
func Attach(ctx context.Context, a Attacher, creds Credentials, clk clock.Clock) error {
	log := logger.New("Network")
	log.Info("Connecting to %s", creds.SSID)

	if err := a.Begin(ctx, creds); err != nil {
		log.Error("begin attach: %v", err)
	}

	polls := 0
	for !a.Attached() {
		if err := clk.Sleep(ctx, PollInterval); err != nil {
			return err
		}
		polls++
		log.Debug(". (%d)", polls)
	}

	log.Info("WiFi connected")
	log.Info("IP address: %s", a.LocalAddr())
	return nil
}
