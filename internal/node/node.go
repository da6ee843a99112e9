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

// Package node runs the thermostat display node: one goroutine that keeps
// the broker session up, applies inbound temperatures, reports the local
// temperature, forwards encoder turns and redraws the panel.
package node

import (
	"context"
	"sync/atomic"
	"time"

	"thermonode/internal/display"
	"thermonode/internal/events"
	"thermonode/internal/netattach"
	"thermonode/internal/rotary"
	"thermonode/internal/session"
	"thermonode/internal/state"
	"thermonode/internal/telemetry"
	"thermonode/pkg/clock"
	"thermonode/pkg/eventbus"
	"thermonode/pkg/logger"
)

// IdleYield is the pause between loop iterations.
const IdleYield = time.Millisecond

type Config struct {
	Credentials  netattach.Credentials
	ClientPrefix string
	Topics       telemetry.Topics
}

// Deps are the node's collaborators. Bus may be nil.
type Deps struct {
	Clock    clock.Clock
	Attacher netattach.Attacher
	Session  session.Session
	Sensor   telemetry.Sensor
	Sink     rotary.Sink
	Surface  display.Surface
	Bus      *eventbus.Bus
}

type Node struct {
	cfg  Config
	log  *logger.Logger
	clk  clock.Clock
	att  netattach.Attacher
	sess session.Session
	sink rotary.Sink
	bus  *eventbus.Bus

	st       *state.State
	sup      *session.Supervisor
	pub      *telemetry.Publisher
	renderer *display.Renderer

	iterations atomic.Uint64
	renders    atomic.Uint64
}

func New(cfg Config, d Deps) *Node {
	n := &Node{
		cfg:      cfg,
		log:      logger.New("Node"),
		clk:      d.Clock,
		att:      d.Attacher,
		sess:     d.Session,
		sink:     d.Sink,
		bus:      d.Bus,
		st:       state.New(),
		pub:      telemetry.NewPublisher(d.Session, d.Sensor, cfg.Topics),
		renderer: display.NewRenderer(d.Surface),
	}
	n.sup = session.NewSupervisor(d.Session, d.Clock, cfg.ClientPrefix, cfg.Topics.Subscriptions()...)
	n.sup.OnChange(n.publishSession)
	return n
}

// State exposes the cached values. Only safe on the loop goroutine.
func (n *Node) State() *state.State { return n.st }

// Setup clears the panel and blocks until the network is attached.
func (n *Node) Setup(ctx context.Context) error {
	if err := n.renderer.Blank(); err != nil {
		n.log.Error("clear display: %v", err)
	}
	return netattach.Attach(ctx, n.att, n.cfg.Credentials, n.clk)
}

// Step runs one loop iteration. It only fails when ctx is done while
// waiting for the session.
func (n *Node) Step(ctx context.Context) error {
	if err := n.sup.Ensure(ctx); err != nil {
		return err
	}
	n.sess.Poll(n.handleMessage)
	n.pub.Tick(n.clk.Now(), n.st)
	n.pub.DrainRotation(n.sink)

	if n.st.Updated {
		n.st.Updated = false
		if err := n.renderer.Render(n.st); err != nil {
			n.log.Error("render: %v", err)
		}
		n.renders.Add(1)
		n.publishDisplay()
	}
	n.iterations.Add(1)
	return nil
}

// Run performs Setup and then steps until ctx is done.
func (n *Node) Run(ctx context.Context) {
	n.log.Info("Running...")
	defer n.log.Info("Stopped")

	if err := n.Setup(ctx); err != nil {
		return
	}
	for {
		if err := n.Step(ctx); err != nil {
			return
		}
		if err := n.clk.Sleep(ctx, IdleYield); err != nil {
			return
		}
	}
}

func (n *Node) handleMessage(topic string, payload []byte) {
	n.pub.HandleMessage(topic, payload, n.st)
}

func (n *Node) publishDisplay() {
	if n.bus == nil {
		return
	}
	snap := n.st.Snapshot()
	n.bus.Publish(events.TopicDisplay, events.DisplayUpdate{
		CurrentTemp: telemetry.FormatTemp(snap.CurrentTemp),
		TargetTemp:  snap.TargetTemp,
		OutsideTemp: snap.OutsideTemp,
		Rows:        display.Rows(n.st),
		Time:        time.Now(),
	})
}

func (n *Node) publishSession(up bool) {
	if n.bus == nil {
		return
	}
	st := n.sup.Stats()
	n.bus.Publish(events.TopicSession, events.SessionUpdate{
		Connected: up,
		Attempts:  st.Attempts,
		Connects:  st.Connects,
		ClientID:  st.LastClient,
		Time:      time.Now(),
	})
}

type Stats struct {
	Iterations    uint64        `json:"iterations"`
	Renders       uint64        `json:"renders"`
	Session       session.Stats `json:"session"`
	RotationDrops uint64        `json:"rotation_drops"`
}

// Stats is safe to call from any goroutine.
func (n *Node) Stats() Stats {
	s := Stats{
		Iterations: n.iterations.Load(),
		Renders:    n.renders.Load(),
		Session:    n.sup.Stats(),
	}
	if d, ok := n.sink.(interface{ Drops() uint64 }); ok {
		s.RotationDrops = d.Drops()
	}
	return s
}
