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

// Package state holds the values shown on the thermostat display. A single
// State is owned by the control loop and passed by pointer into each step.
package state

import "time"

// TempTextCap is the capacity of the cached remote temperature strings.
// Longer payloads are cut to this many bytes.
const TempTextCap = 5

// TempText is a fixed-capacity temperature string as received from the broker.
type TempText struct {
	buf [TempTextCap]byte
	n   int
}

// NewTempText returns a TempText holding s, truncated to TempTextCap.
func NewTempText(s string) TempText {
	var t TempText
	t.Set([]byte(s))
	return t
}

// Set replaces the text with payload, keeping at most TempTextCap bytes.
func (t *TempText) Set(payload []byte) {
	t.n = copy(t.buf[:], payload)
}

func (t TempText) String() string {
	return string(t.buf[:t.n])
}

type State struct {
	CurrentTemp float64
	TargetTemp  TempText
	OutsideTemp TempText

	// Updated is the redraw flag. Only the control loop clears it.
	Updated bool

	// LastPublish is the monotonic time of the last telemetry publish.
	LastPublish time.Duration
}

// New returns the boot-time state.
func New() *State {
	return &State{
		TargetTemp:  NewTempText("00.0"),
		OutsideTemp: NewTempText("00.0"),
	}
}

// Snapshot is a copy of the displayed values.
type Snapshot struct {
	CurrentTemp float64
	TargetTemp  string
	OutsideTemp string
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		CurrentTemp: s.CurrentTemp,
		TargetTemp:  s.TargetTemp.String(),
		OutsideTemp: s.OutsideTemp.String(),
	}
}
