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

// Package display paints the three temperatures onto a character surface.
package display

import (
	"fmt"

	"thermonode/internal/state"
)

type Color uint8

const (
	Black Color = iota
	White
)

const (
	// TextSize is the glyph scale used for every row.
	TextSize = 2

	DegreeSign = '°'
)

// Row origins of the current, target and outside temperatures.
var (
	CurrentRow = [2]int{0, 0}
	TargetRow  = [2]int{0, 25}
	OutsideRow = [2]int{0, 50}
)

// Surface is a cursor-based text canvas. Nothing reaches the panel until
// Display is called.
type Surface interface {
	Clear()
	SetCursor(x, y int)
	SetTextSize(n int)
	SetTextColor(c Color)
	WriteRune(r rune)
	Display() error
}

// FloatText formats t the way the panel shows it: one decimal, at most
// state.TempTextCap characters.
func FloatText(t float64) string {
	s := fmt.Sprintf("%.1f", t)
	if len(s) > state.TempTextCap {
		s = s[:state.TempTextCap]
	}
	return s
}

// WriteTempText writes s followed by °C at (x, y).
func WriteTempText(s Surface, text string, size int, c Color, x, y int) {
	s.SetTextSize(size)
	s.SetTextColor(c)
	s.SetCursor(x, y)
	for _, r := range text {
		s.WriteRune(r)
	}
	s.WriteRune(DegreeSign)
	s.WriteRune('C')
}

// WriteTempFloat writes t followed by °C at (x, y).
func WriteTempFloat(s Surface, t float64, size int, c Color, x, y int) {
	WriteTempText(s, FloatText(t), size, c, x, y)
}

// Rows returns the three rows as Render paints them, top to bottom.
func Rows(st *state.State) []string {
	const suffix = string(DegreeSign) + "C"
	return []string{
		FloatText(st.CurrentTemp) + suffix,
		st.TargetTemp.String() + suffix,
		st.OutsideTemp.String() + suffix,
	}
}

type Renderer struct {
	surface Surface
}

func NewRenderer(s Surface) *Renderer {
	return &Renderer{surface: s}
}

// Render redraws the whole frame from st and flushes it.
func (r *Renderer) Render(st *state.State) error {
	s := r.surface
	s.Clear()
	WriteTempFloat(s, st.CurrentTemp, TextSize, White, CurrentRow[0], CurrentRow[1])
	WriteTempText(s, st.TargetTemp.String(), TextSize, White, TargetRow[0], TargetRow[1])
	WriteTempText(s, st.OutsideTemp.String(), TextSize, White, OutsideRow[0], OutsideRow[1])
	if err := s.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// Blank clears the panel and flushes it.
func (r *Renderer) Blank() error {
	r.surface.Clear()
	if err := r.surface.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
