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

// Package session keeps the node's broker session alive. Ensure blocks the
// control loop, retrying forever on a fixed delay, until the session is up
// and the inbound topics are subscribed again.
package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"thermonode/pkg/clock"
	"thermonode/pkg/mqttclient"
	"thermonode/pkg/logger"
)

// RetryDelay is the fixed delay between failed connection attempts.
const RetryDelay = 5 * time.Second

// ErrNotConnected is returned by Publish while the session is down.
var ErrNotConnected = mqttclient.ErrNotConnected

// Handler receives one inbound message.
type Handler func(topic string, payload []byte)

type Session interface {
	Connected() bool
	Connect(ctx context.Context, clientID string) error
	Subscribe(topic string) error
	Publish(topic string, payload []byte) error
	// Poll dispatches every queued inbound message to h on the caller's
	// goroutine.
	Poll(h func(topic string, payload []byte))
}

// Stats are counters exposed on the diagnostics page.
type Stats struct {
	Attempts   uint64 `json:"attempts"`
	Connects   uint64 `json:"connects"`
	LastClient string `json:"last_client_id"`
}

type Supervisor struct {
	sess     Session
	clk      clock.Clock
	prefix   string
	topics   []string
	log      *logger.Logger
	rand     func() uint32
	onChange func(up bool)

	attempts atomic.Uint64
	connects atomic.Uint64
	lastID   atomic.Value
}

// NewSupervisor supervises sess. topics are (re)subscribed, in order, after
// every successful connect.
func NewSupervisor(sess Session, clk clock.Clock, clientPrefix string, topics ...string) *Supervisor {
	return &Supervisor{
		sess:   sess,
		clk:    clk,
		prefix: clientPrefix,
		topics: topics,
		log:    logger.New("Session"),
		rand:   func() uint32 { return rand.Uint32N(0xffff) },
	}
}

// OnChange registers a callback run on the loop goroutine whenever Ensure
// observes the session going down or coming back up.
func (s *Supervisor) OnChange(fn func(up bool)) { s.onChange = fn }

// ClientID returns a fresh random client identifier.
func (s *Supervisor) ClientID() string {
	return fmt.Sprintf("%s-%x", s.prefix, s.rand())
}

// Ensure returns immediately if the session is live. Otherwise it blocks,
// attempting a connection every RetryDelay until one succeeds, then
// resubscribes. Only ctx cancellation ends the loop early.
func (s *Supervisor) Ensure(ctx context.Context) error {
	if s.sess.Connected() {
		return nil
	}
	if s.onChange != nil {
		s.onChange(false)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.Info("Attempting MQTT connection...")
		id := s.ClientID()
		s.attempts.Add(1)
		s.lastID.Store(id)

		if err := s.sess.Connect(ctx, id); err != nil {
			s.log.Info("failed, rc=%v try again in %d seconds", err, int(RetryDelay/time.Second))
			if err := s.clk.Sleep(ctx, RetryDelay); err != nil {
				return err
			}
			continue
		}

		s.log.Info("connected as %s", id)
		s.connects.Add(1)
		for _, topic := range s.topics {
			if err := s.sess.Subscribe(topic); err != nil {
				s.log.Error("subscribe %s: %v", topic, err)
			}
		}
		break
	}

	if s.onChange != nil {
		s.onChange(true)
	}
	return nil
}

func (s *Supervisor) Stats() Stats {
	id, _ := s.lastID.Load().(string)
	return Stats{
		Attempts:   s.attempts.Load(),
		Connects:   s.connects.Load(),
		LastClient: id,
	}
}
