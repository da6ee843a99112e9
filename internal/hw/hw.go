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

// Package hw opens the board's shared buses. Drivers on the same bus name
// share one handle.
package hw

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"thermonode/pkg/logger"
)

type Buses struct {
	mu   sync.Mutex
	open map[string]i2c.BusCloser
	log  *logger.Logger

	// opener is swapped out in tests.
	opener func(name string) (i2c.BusCloser, error)
}

var initOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Init loads the periph host drivers. It is safe to call more than once.
func Init() error {
	if err := initOnce(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

func NewBuses() *Buses {
	return &Buses{
		open:   make(map[string]i2c.BusCloser),
		log:    logger.New("Hardware"),
		opener: i2creg.Open,
	}
}

// I2C returns the named bus, opening it on first use. An empty name is the
// first bus found.
func (b *Buses) I2C(name string) (i2c.Bus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bus, ok := b.open[name]; ok {
		return bus, nil
	}
	bus, err := b.opener(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	b.log.Info("Opened I2C bus %s", bus)
	b.open[name] = bus
	return bus, nil
}

func (b *Buses) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for name, bus := range b.open {
		if err := bus.Close(); err != nil && first == nil {
			first = fmt.Errorf("close i2c bus %q: %w", name, err)
		}
		delete(b.open, name)
	}
	return first
}
