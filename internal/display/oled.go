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
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Character cell of the panel font at text size 1.
const (
	CellW = 6
	CellH = 8
)

// Panel is the pixel sink behind an OLED, satisfied by *ssd1306.Dev.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// OLED renders text into a 1-bit framebuffer and pushes it to a Panel on
// Display. Glyphs come from basicfont and are resampled into
// CellW x CellH cells times the text size.
type OLED struct {
	panel Panel
	img   *image1bit.VerticalLSB
	face  font.Face

	x, y  int
	size  int
	color Color
}

func NewOLED(p Panel) *OLED {
	return &OLED{
		panel: p,
		img:   image1bit.NewVerticalLSB(p.Bounds()),
		face:  basicfont.Face7x13,
		size:  1,
		color: White,
	}
}

// OpenSSD1306 starts a 128x64 SSD1306 on bus.
func OpenSSD1306(bus i2c.Bus) (*OLED, *ssd1306.Dev, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("ssd1306: %w", err)
	}
	return NewOLED(dev), dev, nil
}

func (o *OLED) Clear() {
	for i := range o.img.Pix {
		o.img.Pix[i] = 0
	}
}

func (o *OLED) SetCursor(x, y int) { o.x, o.y = x, y }

func (o *OLED) SetTextSize(n int) {
	if n < 1 {
		n = 1
	}
	o.size = n
}

func (o *OLED) SetTextColor(c Color) { o.color = c }

func (o *OLED) WriteRune(r rune) {
	if r == '\n' {
		o.x = 0
		o.y += CellH * o.size
		return
	}
	o.drawGlyph(r)
	o.x += CellW * o.size
}

func (o *OLED) Display() error {
	return o.panel.Draw(o.img.Bounds(), o.img, image.Point{})
}

// Framebuffer exposes the current pixels.
func (o *OLED) Framebuffer() *image1bit.VerticalLSB { return o.img }

// degreeCols is the panel's degree sign, one byte per column, LSB on top.
// The basicfont face has no glyph for it.
var degreeCols = [CellW]byte{0x06, 0x09, 0x09, 0x06, 0x00, 0x00}

func (o *OLED) drawGlyph(r rune) {
	if r == DegreeSign {
		o.drawCols(degreeCols[:])
		return
	}
	dr, mask, mp, _, ok := o.face.Glyph(fixed.P(0, o.face.Metrics().Ascent.Ceil()), r)
	if !ok {
		return
	}
	// drop the top and bottom rows of the 7x13 face so digits fill the cell
	srcW, srcTop, srcH := dr.Dx(), 1, dr.Dy()-2
	cw, ch := CellW*o.size, CellH*o.size

	for cy := 0; cy < ch; cy++ {
		sy := srcTop + cy*srcH/ch
		for cx := 0; cx < cw; cx++ {
			sx := cx * srcW / cw
			if _, _, _, a := mask.At(mp.X+sx, mp.Y+sy).RGBA(); a >= 0x8000 {
				o.plot(o.x+cx, o.y+cy)
			}
		}
	}
}

func (o *OLED) drawCols(cols []byte) {
	for cx := 0; cx < len(cols)*o.size; cx++ {
		col := cols[cx/o.size]
		for cy := 0; cy < CellH*o.size; cy++ {
			if col&(1<<(cy/o.size)) != 0 {
				o.plot(o.x+cx, o.y+cy)
			}
		}
	}
}

func (o *OLED) plot(x, y int) {
	if !image.Pt(x, y).In(o.img.Bounds()) {
		return
	}
	bit := image1bit.On
	if o.color == Black {
		bit = image1bit.Off
	}
	o.img.SetBit(x, y, bit)
}
