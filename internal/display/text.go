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

package display

import (
	"sort"
	"strings"
	"sync"

	"thermonode/pkg/logger"
)

// Line is one run of text written after a SetCursor.
type Line struct {
	X, Y  int
	Size  int
	Color Color
	Text  string
}

// TextSurface records text instead of drawing pixels. Display copies the
// working lines into the last shown frame.
type TextSurface struct {
	mu      sync.Mutex
	size    int
	color   Color
	work    []Line
	cur     int
	shown   []Line
	flushes int

	// OnDisplay, if set, runs with the frame on every Display.
	OnDisplay func(frame []Line)
}

func NewTextSurface() *TextSurface {
	return &TextSurface{size: 1, color: White, cur: -1}
}

func (t *TextSurface) Clear() {
	t.mu.Lock()
	t.work = nil
	t.cur = -1
	t.mu.Unlock()
}

func (t *TextSurface) SetCursor(x, y int) {
	t.mu.Lock()
	t.work = append(t.work, Line{X: x, Y: y, Size: t.size, Color: t.color})
	t.cur = len(t.work) - 1
	t.mu.Unlock()
}

func (t *TextSurface) SetTextSize(n int) {
	t.mu.Lock()
	t.size = n
	t.mu.Unlock()
}

func (t *TextSurface) SetTextColor(c Color) {
	t.mu.Lock()
	t.color = c
	t.mu.Unlock()
}

func (t *TextSurface) WriteRune(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur < 0 {
		t.work = append(t.work, Line{Size: t.size, Color: t.color})
		t.cur = 0
	}
	t.work[t.cur].Text += string(r)
}

func (t *TextSurface) Display() error {
	t.mu.Lock()
	t.shown = append([]Line(nil), t.work...)
	t.flushes++
	frame, hook := t.frameLocked(), t.OnDisplay
	t.mu.Unlock()
	if hook != nil {
		hook(frame)
	}
	return nil
}

// frameLocked copies the shown frame. t.mu must be held.
func (t *TextSurface) frameLocked() []Line {
	out := make([]Line, len(t.shown))
	copy(out, t.shown)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// Frame returns the last displayed frame ordered top to bottom.
func (t *TextSurface) Frame() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameLocked()
}

// Rows returns the text of the last displayed frame, top to bottom.
func (t *TextSurface) Rows() []string {
	frame := t.Frame()
	rows := make([]string, len(frame))
	for i, l := range frame {
		rows[i] = l.Text
	}
	return rows
}

// Flushes counts Display calls.
func (t *TextSurface) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

// NewConsole returns a TextSurface that logs each displayed frame, for
// boards without a panel.
func NewConsole() *TextSurface {
	log := logger.New("Display")
	t := NewTextSurface()
	t.OnDisplay = func(frame []Line) {
		rows := make([]string, len(frame))
		for i, l := range frame {
			rows[i] = l.Text
		}
		log.Info("| %s |", strings.Join(rows, " | "))
	}
	return t
}
