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

package modbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	wrapper "github.com/grid-x/modbus"

	"thermonode/pkg/logger"
)

type registerReader interface {
	ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]byte, error)
}

// Client reads holding registers from one Modbus TCP device. It connects on
// first use and reconnects once per read after a connection error.
type Client struct {
	mu     sync.Mutex
	reader registerReader
	closer func() error
	config *Config
	log    *logger.Logger

	dial func(ctx context.Context) (registerReader, func() error, error)
}

func NewClient(config *Config) *Client {
	c := &Client{
		config: config,
		log:    logger.New("ModbusConn"),
	}
	c.dial = c.dialTCP
	return c
}

func (c *Client) dialTCP(ctx context.Context) (registerReader, func() error, error) {
	url := fmt.Sprintf("%s:%d", c.config.Modbus.Host, c.config.Modbus.Port)
	handler := wrapper.NewTCPClientHandler(url)
	handler.SlaveID = c.config.Modbus.SlaveID
	handler.Timeout = time.Second * time.Duration(c.config.Modbus.Timeout)
	handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
	handler.LinkRecoveryTimeout = 5 * time.Second

	c.log.Info("Connecting to %s...", url)
	if err := handler.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("modbus connect failed: %w", err)
	}
	c.log.Info("Connected to %s", url)
	return wrapper.NewClient(handler), handler.Close, nil
}

// connect must be called with c.mu held.
func (c *Client) connect(ctx context.Context) error {
	if c.reader != nil {
		return nil
	}
	r, closer, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.reader, c.closer = r, closer
	return nil
}

// drop must be called with c.mu held.
func (c *Client) drop() {
	if c.closer != nil {
		_ = c.closer()
	}
	c.reader, c.closer = nil, nil
}

// ReadRegisters reads quantity holding registers starting at addr.
func (c *Client) ReadRegisters(ctx context.Context, addr, quantity uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = c.connect(ctx); err != nil {
			return nil, err
		}
		var data []byte
		data, err = c.reader.ReadHoldingRegisters(ctx, addr, quantity)
		if err == nil {
			return data, nil
		}
		if !isConnError(err) {
			return nil, err
		}
		c.log.Error("connection error: %v, reconnecting", err)
		c.drop()
	}
	return nil, err
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
}

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed by the remote host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused")
}
