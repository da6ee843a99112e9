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
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"thermonode/internal/state"
)

func TestFloatText(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{22.3, "22.3"},
		{0, "0.0"},
		{-12.34, "-12.3"},
		{123.44, "123.4"},
		{1234.5, "1234."},
		{-100.25, "-100."},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
	}
	for _, tt := range tests {
		if got := FloatText(tt.in); got != tt.want {
			t.Errorf("FloatText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	ts := NewTextSurface()
	st := state.New()
	st.CurrentTemp = 22.3
	st.TargetTemp.Set([]byte("21.5"))

	if err := NewRenderer(ts).Render(st); err != nil {
		t.Fatal(err)
	}

	frame := ts.Frame()
	want := []Line{
		{X: 0, Y: 0, Size: 2, Color: White, Text: "22.3°C"},
		{X: 0, Y: 25, Size: 2, Color: White, Text: "21.5°C"},
		{X: 0, Y: 50, Size: 2, Color: White, Text: "00.0°C"},
	}
	if len(frame) != len(want) {
		t.Fatalf("frame = %+v", frame)
	}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, frame[i], want[i])
		}
	}
	if ts.Flushes() != 1 {
		t.Errorf("flushes = %d", ts.Flushes())
	}
	if got, want := strings.Join(Rows(st), ","), strings.Join(ts.Rows(), ","); got != want {
		t.Errorf("Rows = %s, rendered %s", got, want)
	}
}

func TestRenderReplacesFrame(t *testing.T) {
	ts := NewTextSurface()
	r := NewRenderer(ts)
	st := state.New()

	_ = r.Render(st)
	st.OutsideTemp.Set([]byte("-3.5"))
	st.CurrentTemp = math.NaN()
	_ = r.Render(st)

	got := strings.Join(ts.Rows(), ",")
	if got != "NaN°C,00.0°C,-3.5°C" {
		t.Fatalf("rows = %s", got)
	}
}

func TestBlank(t *testing.T) {
	ts := NewTextSurface()
	r := NewRenderer(ts)
	_ = r.Render(state.New())
	if err := r.Blank(); err != nil {
		t.Fatal(err)
	}
	if len(ts.Frame()) != 0 || ts.Flushes() != 2 {
		t.Fatalf("frame = %v flushes = %d", ts.Frame(), ts.Flushes())
	}
}

func TestConsoleHook(t *testing.T) {
	ts := NewConsole()
	var seen [][]Line
	inner := ts.OnDisplay
	ts.OnDisplay = func(f []Line) {
		inner(f)
		seen = append(seen, f)
	}
	_ = NewRenderer(ts).Render(state.New())
	if len(seen) != 1 || len(seen[0]) != 3 {
		t.Fatalf("seen = %v", seen)
	}
}

type fakePanel struct {
	draws int
	last  image.Image
	err   error
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.draws++
	p.last = src
	return p.err
}

func litIn(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestOLEDGlyphCells(t *testing.T) {
	p := &fakePanel{}
	o := NewOLED(p)
	o.SetTextSize(2)
	o.SetTextColor(White)
	o.SetCursor(0, 25)
	o.WriteRune('8')
	o.WriteRune(DegreeSign)

	fb := o.Framebuffer()
	cell := image.Rect(0, 25, CellW*2, 25+CellH*2)
	if litIn(fb, cell) == 0 {
		t.Fatal("no pixels in first cell")
	}
	if litIn(fb, cell.Add(image.Pt(CellW*2, 0))) == 0 {
		t.Fatal("no pixels for degree sign")
	}
	total := litIn(fb, fb.Bounds())
	inside := litIn(fb, image.Rect(0, 25, CellW*4, 25+CellH*2))
	if total != inside {
		t.Fatalf("%d pixels outside the written cells", total-inside)
	}

	if err := o.Display(); err != nil {
		t.Fatal(err)
	}
	if p.draws != 1 || p.last != fb {
		t.Fatalf("draws = %d", p.draws)
	}

	o.Clear()
	if litIn(fb, fb.Bounds()) != 0 {
		t.Fatal("clear left pixels on")
	}
}

func TestOLEDClipsAtEdge(t *testing.T) {
	o := NewOLED(&fakePanel{})
	o.SetTextSize(2)
	o.SetCursor(120, 56)
	o.WriteRune('8') // partly off panel
	fb := o.Framebuffer()
	if litIn(fb, fb.Bounds()) == 0 {
		t.Fatal("visible part of glyph not drawn")
	}
}

func TestOLEDRenderer(t *testing.T) {
	p := &fakePanel{err: errors.New("nack")}
	o := NewOLED(p)
	st := state.New()
	st.CurrentTemp = 21
	err := NewRenderer(o).Render(st)
	if err == nil || !strings.Contains(err.Error(), "nack") {
		t.Fatalf("err = %v", err)
	}
	fb := o.Framebuffer()
	for _, row := range []int{0, 25, 50} {
		if litIn(fb, image.Rect(0, row, 128, row+CellH*TextSize)) == 0 {
			t.Errorf("row %d empty", row)
		}
	}
}
