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

// Package mqttclient is a thin broker session over paho.mqtt.golang that
// leaves reconnection to the caller. Inbound messages are queued and only
// handed out by Poll so they can be processed on a single goroutine.
package mqttclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"thermonode/pkg/logger"
)

var ErrNotConnected = errors.New("mqtt: not connected")

// ConnectError reports a refused or failed connection attempt. Code is the
// CONNACK return code when the broker answered, 0 otherwise.
type ConnectError struct {
	Code byte
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}
	return fmt.Sprintf("%d (%v)", e.Code, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

type Options struct {
	Host     string
	Port     int
	Username string
	Password string

	// QoS and Retained apply to every publish and subscribe.
	QoS      byte
	Retained bool

	ConnectTimeout time.Duration
	// InboxSize bounds the queue of inbound messages awaiting Poll.
	InboxSize int
}

func (o Options) broker() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

type message struct {
	topic   string
	payload []byte
}

type Client struct {
	opts Options
	log  *logger.Logger

	// newClient is swapped out in tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client

	inbox   chan message
	dropped atomic.Uint64
}

func New(opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = 1883
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 16
	}
	return &Client{
		opts:      opts,
		log:       logger.New("MQTT"),
		newClient: mqtt.NewClient,
		inbox:     make(chan message, opts.InboxSize),
	}
}

func (c *Client) current() mqtt.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *Client) Connected() bool {
	cl := c.current()
	return cl != nil && cl.IsConnected()
}

// Connect opens a new session under clientID, dropping any previous one.
// paho's own reconnect logic is disabled.
func (c *Client) Connect(ctx context.Context, clientID string) error {
	if old := c.current(); old != nil {
		old.Disconnect(0)
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(c.opts.broker())
	o.SetClientID(clientID)
	if c.opts.Username != "" {
		o.SetUsername(c.opts.Username)
		o.SetPassword(c.opts.Password)
	}
	o.SetAutoReconnect(false)
	o.SetConnectRetry(false)
	o.SetCleanSession(true)
	o.SetConnectTimeout(c.opts.ConnectTimeout)
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.Info("connection lost: %v", err)
	})

	cl := c.newClient(o)
	tok := cl.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		cl.Disconnect(0)
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		var code byte
		if rc, ok := tok.(interface{ ReturnCode() byte }); ok {
			code = rc.ReturnCode()
		}
		return &ConnectError{Code: code, Err: err}
	}

	c.mu.Lock()
	c.client = cl
	c.mu.Unlock()
	return nil
}

func (c *Client) Subscribe(topic string) error {
	cl := c.current()
	if cl == nil || !cl.IsConnected() {
		return ErrNotConnected
	}
	tok := cl.Subscribe(topic, c.opts.QoS, c.enqueue)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	cl := c.current()
	if cl == nil || !cl.IsConnected() {
		return ErrNotConnected
	}
	tok := cl.Publish(topic, c.opts.QoS, c.opts.Retained, payload)
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// enqueue runs on paho's router goroutine and must not block.
func (c *Client) enqueue(_ mqtt.Client, msg mqtt.Message) {
	p := make([]byte, len(msg.Payload()))
	copy(p, msg.Payload())
	select {
	case c.inbox <- message{topic: msg.Topic(), payload: p}:
	default:
		c.dropped.Add(1)
		c.log.Debug("inbox full, dropped message on %s", msg.Topic())
	}
}

// Poll hands every queued message to h, in arrival order, without waiting
// for new ones.
func (c *Client) Poll(h func(topic string, payload []byte)) {
	for {
		select {
		case m := <-c.inbox:
			h(m.topic, m.payload)
		default:
			return
		}
	}
}

// Dropped is the number of inbound messages discarded because the inbox was
// full.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

func (c *Client) Close() {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()
	if cl != nil {
		cl.Disconnect(250)
	}
}
