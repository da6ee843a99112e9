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

package rotary

import "sync/atomic"

// Ring is a bounded single-producer single-consumer queue of directions.
// Unlike Register it keeps every event until the ring is full; further
// events are dropped and counted.
type Ring struct {
	buf   []atomic.Uint32
	mask  uint32
	rd    atomic.Uint32 // consumer index (monotonic)
	wr    atomic.Uint32 // producer index (monotonic)
	drops atomic.Uint64
}

// NewRing returns a ring holding size events. size must be a power of two >= 2.
func NewRing(size int) *Ring {
	if size < 2 || size&(size-1) != 0 {
		panic("rotary: ring size must be power of two >= 2")
	}
	return &Ring{
		buf:  make([]atomic.Uint32, size),
		mask: uint32(size - 1),
	}
}

// Post is the producer side.
func (r *Ring) Post(d Direction) {
	wr := r.wr.Load()
	if wr-r.rd.Load() >= uint32(len(r.buf)) {
		r.drops.Add(1)
		return
	}
	r.buf[wr&r.mask].Store(uint32(d))
	r.wr.Store(wr + 1) // release
}

// Take is the consumer side.
func (r *Ring) Take() Direction {
	rd := r.rd.Load()
	if rd == r.wr.Load() { // acquire
		return None
	}
	d := Direction(r.buf[rd&r.mask].Load())
	r.rd.Store(rd + 1)
	return d
}

func (r *Ring) Len() int { return int(r.wr.Load() - r.rd.Load()) }

func (r *Ring) Drops() uint64 { return r.drops.Load() }
