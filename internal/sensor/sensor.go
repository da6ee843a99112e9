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

// Package sensor provides the ambient temperature sources. Every source
// returns NaN when a sample cannot be taken.
package sensor

import (
	"context"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"thermonode/pkg/logger"
	"thermonode/pkg/modbus"
)

// Celsius converts a periph temperature to °C.
func Celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}

type envSenser interface {
	Sense(e *physic.Env) error
}

// Env samples an environmental sensor such as a BME280.
type Env struct {
	dev envSenser
	log *logger.Logger
}

func NewEnv(dev envSenser) *Env {
	return &Env{dev: dev, log: logger.New("Sensor")}
}

// OpenBME280 starts a Bosch BMx280 at addr (0x76 or 0x77) on bus.
func OpenBME280(bus i2c.Bus, addr uint16) (*Env, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80 at 0x%02x: %w", addr, err)
	}
	return NewEnv(dev), nil
}

func (s *Env) ReadTemperature() float64 {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		s.log.Error("sense: %v", err)
		return math.NaN()
	}
	return Celsius(e.Temperature)
}

// Modbus reads the temperature from a named register of a Modbus TCP
// transmitter.
type Modbus struct {
	client   *modbus.Client
	register string
	timeout  time.Duration
	log      *logger.Logger
}

func NewModbus(client *modbus.Client, register string, timeout time.Duration) *Modbus {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Modbus{
		client:   client,
		register: register,
		timeout:  timeout,
		log:      logger.New("Sensor"),
	}
}

func (s *Modbus) ReadTemperature() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := modbus.ReadTyped[float64](ctx, s.client, s.register)
	if err != nil {
		s.log.Error("read %s: %v", s.register, err)
		return math.NaN()
	}
	return v
}
