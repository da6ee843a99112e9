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

// Package telemetry moves values between the node and the broker: the
// periodic temperature report, inbound target/outside temperatures and
// encoder commands.
package telemetry

import (
	"fmt"
	"time"

	"thermonode/internal/rotary"
	"thermonode/internal/state"
	"thermonode/pkg/logger"
)

// PublishInterval is the minimum time between temperature reports.
const PublishInterval = 10 * time.Second

const DefaultPrefix = "/Stue/thermostat"

type Topics struct {
	CurrentTemp      string
	TargetTemp       string
	TargetTempChange string
	OutsideTemp      string
}

func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		CurrentTemp:      prefix + "/currentTemp",
		TargetTemp:       prefix + "/targetTemp",
		TargetTempChange: prefix + "/targetTempChange",
		OutsideTemp:      prefix + "/outsideTemp",
	}
}

// Subscriptions lists the inbound topics in subscription order.
func (t Topics) Subscriptions() []string {
	return []string{t.TargetTemp, t.OutsideTemp}
}

// Sensor samples the ambient temperature in °C. A failed read returns NaN.
type Sensor interface {
	ReadTemperature() float64
}

type Sender interface {
	Publish(topic string, payload []byte) error
}

type Publisher struct {
	out    Sender
	sensor Sensor
	topics Topics
	log    *logger.Logger
}

func NewPublisher(out Sender, sensor Sensor, topics Topics) *Publisher {
	return &Publisher{
		out:    out,
		sensor: sensor,
		topics: topics,
		log:    logger.New("Telemetry"),
	}
}

func (p *Publisher) Topics() Topics { return p.topics }

// FormatTemp renders a temperature with one decimal.
func FormatTemp(t float64) string {
	return fmt.Sprintf("%.1f", t)
}

// Tick samples and reports the temperature once more than PublishInterval
// has passed since the last report. The schedule restarts from now, so a
// late tick does not cause catch-up reports.
func (p *Publisher) Tick(now time.Duration, st *state.State) {
	if now-st.LastPublish <= PublishInterval {
		return
	}
	st.LastPublish = now
	st.CurrentTemp = p.sensor.ReadTemperature()
	st.Updated = true

	msg := FormatTemp(st.CurrentTemp)
	p.log.Info("Publish message: %s", msg)
	p.publish(p.topics.CurrentTemp, msg)
}

// HandleMessage applies one inbound message to st.
func (p *Publisher) HandleMessage(topic string, payload []byte, st *state.State) {
	p.log.Info("Message arrived [%s] %s", topic, payload)

	switch topic {
	case p.topics.TargetTemp:
		st.TargetTemp.Set(payload)
	case p.topics.OutsideTemp:
		st.OutsideTemp.Set(payload)
	default:
		return
	}
	st.Updated = true
}

// DrainRotation takes the pending encoder event, if any, and sends the
// matching target change command.
func (p *Publisher) DrainRotation(sink rotary.Sink) rotary.Direction {
	d := sink.Take()
	switch d {
	case rotary.Clockwise:
		p.log.Info("Rot %s", d)
		p.publish(p.topics.TargetTempChange, "inc")
	case rotary.CounterClockwise:
		p.log.Info("Rot %s", d)
		p.publish(p.topics.TargetTempChange, "dec")
	}
	return d
}

func (p *Publisher) publish(topic, payload string) {
	if err := p.out.Publish(topic, []byte(payload)); err != nil {
		p.log.Error("publish %s: %v", topic, err)
	}
}
