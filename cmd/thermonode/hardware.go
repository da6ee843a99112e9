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

package main

import (
	"errors"
	"fmt"
	"time"

	"thermonode/internal/config"
	"thermonode/internal/display"
	"thermonode/internal/hw"
	"thermonode/internal/rotary"
	"thermonode/internal/sensor"
	"thermonode/internal/telemetry"
	"thermonode/pkg/clock"
	"thermonode/pkg/logger"
	"thermonode/pkg/modbus"
)

// hardware holds the board-facing collaborators and how to release them.
type hardware struct {
	sink    rotary.Sink
	sensor  telemetry.Sensor
	surface display.Surface
	closers []func() error
}

func (h *hardware) Close() {
	log := logger.New("Hardware")
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			log.Error("close: %v", err)
		}
	}
	h.closers = nil
}

func openHardware(conf *config.Config, clk clock.Clock) (*hardware, error) {
	h := &hardware{}
	ok := false
	defer func() {
		if !ok {
			h.Close()
		}
	}()

	if conf.Rotary.QueueSize > 0 {
		h.sink = rotary.NewRing(conf.Rotary.QueueSize)
	} else {
		h.sink = &rotary.Register{}
	}
	enc, err := rotary.OpenEncoder(conf.Rotary.Chip, conf.Rotary.PinA, conf.Rotary.PinB, h.sink)
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, enc.Close)

	needI2C := conf.Display.Driver == "oled" || conf.Sensor.Driver == "bme280"
	buses := hw.NewBuses()
	if needI2C {
		if err := hw.Init(); err != nil {
			return nil, err
		}
		h.closers = append(h.closers, buses.Close)
	}

	switch conf.Display.Driver {
	case "oled":
		bus, err := buses.I2C(conf.Display.I2CBus)
		if err != nil {
			return nil, err
		}
		oled, dev, err := display.OpenSSD1306(bus)
		if err != nil {
			return nil, err
		}
		h.surface = oled
		h.closers = append(h.closers, dev.Halt)
	case "console":
		h.surface = display.NewConsole()
	default:
		return nil, fmt.Errorf("unknown display driver %q", conf.Display.Driver)
	}

	var raw telemetry.Sensor
	switch conf.Sensor.Driver {
	case "bme280":
		bus, err := buses.I2C(conf.Sensor.I2CBus)
		if err != nil {
			return nil, err
		}
		env, err := sensor.OpenBME280(bus, conf.Sensor.I2CAddr)
		if err != nil {
			return nil, err
		}
		raw = env
	case "modbus":
		if conf.Modbus == nil {
			return nil, errors.New("modbus sensor selected without a register map")
		}
		client := modbus.NewClient(conf.Modbus)
		h.closers = append(h.closers, func() error { client.Close(); return nil })
		timeout := time.Duration(conf.Modbus.Modbus.Timeout) * time.Second
		raw = sensor.NewModbus(client, conf.Sensor.Register, timeout)
	default:
		return nil, fmt.Errorf("unknown sensor driver %q", conf.Sensor.Driver)
	}

	limits := sensor.DefaultLimits
	limits.Min, limits.Max, limits.MaxStep = conf.Sensor.MinC, conf.Sensor.MaxC, conf.Sensor.MaxStepC
	h.sensor = sensor.NewChecked(raw, limits, clk)

	ok = true
	return h, nil
}
