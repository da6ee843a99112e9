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

package sensor

import (
	"fmt"
	"math"
	"time"

	"thermonode/internal/telemetry"
	"thermonode/pkg/clock"
	"thermonode/pkg/logger"
)

// Limits bounds plausible readings. A zero MaxStep disables the rate check.
type Limits struct {
	Min, Max float64
	// MaxStep is the largest change accepted within StepWindow of the last
	// good reading.
	MaxStep    float64
	StepWindow time.Duration
}

// DefaultLimits covers an indoor room sensor.
var DefaultLimits = Limits{
	Min:        -40,
	Max:        85,
	MaxStep:    15,
	StepWindow: 8 * time.Minute,
}

// Checked rejects implausible readings from an inner sensor and reports
// them as NaN.
type Checked struct {
	inner  telemetry.Sensor
	limits Limits
	clk    clock.Clock
	log    *logger.Logger

	last     float64
	lastAt   time.Duration
	haveLast bool
	rejected uint64
}

func NewChecked(inner telemetry.Sensor, limits Limits, clk clock.Clock) *Checked {
	return &Checked{
		inner:  inner,
		limits: limits,
		clk:    clk,
		log:    logger.New("Sensor"),
	}
}

func (c *Checked) ReadTemperature() float64 {
	t := c.inner.ReadTemperature()
	if math.IsNaN(t) {
		return t
	}
	now := c.clk.Now()
	if err := c.check(t, now); err != nil {
		c.rejected++
		c.log.Error("rejected reading %.2f: %v", t, err)
		return math.NaN()
	}
	c.last, c.lastAt, c.haveLast = t, now, true
	return t
}

// Rejected counts readings discarded as implausible.
func (c *Checked) Rejected() uint64 { return c.rejected }

func (c *Checked) check(t float64, now time.Duration) error {
	if t < c.limits.Min {
		return fmt.Errorf("below %.0f°C", c.limits.Min)
	}
	if t > c.limits.Max {
		return fmt.Errorf("above %.0f°C", c.limits.Max)
	}
	if !c.haveLast || c.limits.MaxStep == 0 {
		return nil
	}
	delta := math.Abs(t - c.last)
	dt := now - c.lastAt
	if dt < c.limits.StepWindow && delta > c.limits.MaxStep {
		return fmt.Errorf("changed too fast: Δ%.1f°C in %v", delta, dt.Truncate(time.Second))
	}
	return nil
}
