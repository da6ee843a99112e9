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

// Package rotary turns rotary encoder pin changes into coarse direction
// events. The edge handler runs on the GPIO event context and only touches a
// lock-free Sink, which the control loop drains.
package rotary

import "sync/atomic"

type Direction uint32

const (
	None Direction = iota
	Clockwise
	CounterClockwise
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	default:
		return "none"
	}
}

// Decode classifies the instantaneous level of pins A and B. Equal levels
// (00 or 11) mean counter-clockwise, anything else clockwise.
//
// This is not a full quadrature decode: the previous state is not tracked,
// so contact bounce can report the wrong direction.
func Decode(a, b int) Direction {
	code := (a & 1) | (b&1)<<1
	if code == 0b11 || code == 0b00 {
		return CounterClockwise
	}
	return Clockwise
}

// Sink receives direction events from the edge handler.
// Post must never block. Take returns None when nothing is pending.
type Sink interface {
	Post(d Direction)
	Take() Direction
}

// Register is a single-slot pending event. A new event overwrites an unread
// one.
type Register struct {
	v atomic.Uint32
}

func (r *Register) Post(d Direction) { r.v.Store(uint32(d)) }

// Take returns the pending event and clears the slot in one step.
func (r *Register) Take() Direction { return Direction(r.v.Swap(uint32(None))) }

// Peek returns the pending event without consuming it.
func (r *Register) Peek() Direction { return Direction(r.v.Load()) }

// Pin is a digital input.
type Pin interface {
	Value() (int, error)
}

// Detector reads both encoder pins on every edge and posts the decoded
// direction.
type Detector struct {
	a, b Pin
	sink Sink
}

func NewDetector(a, b Pin, sink Sink) *Detector {
	return &Detector{a: a, b: b, sink: sink}
}

// OnEdge is the pin-change handler. A failed read counts as level 0.
func (d *Detector) OnEdge() {
	a, err := d.a.Value()
	if err != nil {
		a = 0
	}
	b, err := d.b.Value()
	if err != nil {
		b = 0
	}
	d.sink.Post(Decode(a, b))
}
