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

package events

import (
	"time"

	"thermonode/pkg/eventbus"
)

var (
	TopicDisplay eventbus.Topic = "display"
	TopicSession eventbus.Topic = "session"
)

// DisplayUpdate mirrors the frame just rendered on the panel.
type DisplayUpdate struct {
	CurrentTemp string    `json:"current"`
	TargetTemp  string    `json:"target"`
	OutsideTemp string    `json:"outside"`
	Rows        []string  `json:"rows"`
	Time        time.Time `json:"time"`
}

type SessionUpdate struct {
	Connected bool      `json:"connected"`
	Attempts  uint64    `json:"attempts"`
	Connects  uint64    `json:"connects"`
	ClientID  string    `json:"client_id"`
	Time      time.Time `json:"time"`
}
