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

package state

import (
	"strings"
	"testing"
)

func TestTempTextSet(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		payload string
		want    string
	}{
		{"exact", "00.0", "21.5", "21.5"},
		{"shorter replaces fully", "21.5", "5.5", "5.5"},
		{"at capacity", "00.0", "-10.5", "-10.5"},
		{"truncated", "00.0", "123.456", "123.4"},
		{"empty", "21.5", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewTempText(tt.initial)
			tx.Set([]byte(tt.payload))
			if got := tx.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTempTextTruncationProperty(t *testing.T) {
	for n := 0; n <= 3*TempTextCap; n++ {
		payload := strings.Repeat("7", n)
		var tx TempText
		tx.Set([]byte(payload))

		want := payload
		if n > TempTextCap {
			want = payload[:TempTextCap]
		}
		if tx.String() != want {
			t.Fatalf("len %d: got %q, want %q", n, tx.String(), want)
		}
	}
}

func TestNewState(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	if snap.TargetTemp != "00.0" || snap.OutsideTemp != "00.0" || snap.CurrentTemp != 0 {
		t.Fatalf("boot snapshot = %+v", snap)
	}
	if s.Updated || s.LastPublish != 0 {
		t.Fatalf("boot flags = %v %v", s.Updated, s.LastPublish)
	}
}
