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

//go:build linux

package rotary

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// Encoder binds a Detector to two lines of a GPIO character device. Edge
// events on pin A (both edges) invoke the detector from the gpiocdev event
// goroutine.
type Encoder struct {
	a, b *gpiocdev.Line
}

// lazyLine lets the edge handler exist before its own line is requested.
type lazyLine struct {
	l atomic.Pointer[gpiocdev.Line]
}

var errLineNotReady = errors.New("rotary: line not ready")

func (p *lazyLine) Value() (int, error) {
	l := p.l.Load()
	if l == nil {
		return 0, errLineNotReady
	}
	return l.Value()
}

// OpenEncoder requests pinA and pinB on chip as pulled-up inputs and starts
// delivering decoded rotation events to sink.
func OpenEncoder(chip string, pinA, pinB int, sink Sink) (*Encoder, error) {
	b, err := gpiocdev.RequestLine(chip, pinB,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("thermonode-rot-b"))
	if err != nil {
		return nil, fmt.Errorf("request rotary pin B %d: %w", pinB, err)
	}

	lineA := &lazyLine{}
	det := NewDetector(lineA, b, sink)

	a, err := gpiocdev.RequestLine(chip, pinA,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("thermonode-rot-a"),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { det.OnEdge() }))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request rotary pin A %d: %w", pinA, err)
	}
	lineA.l.Store(a)

	return &Encoder{a: a, b: b}, nil
}

func (e *Encoder) Close() error {
	return errors.Join(e.a.Close(), e.b.Close())
}
