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

package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"thermonode/internal/rotary"
	"thermonode/internal/state"
)

type sent struct {
	topic   string
	payload string
}

type recorder struct {
	msgs []sent
	err  error
}

func (r *recorder) Publish(topic string, payload []byte) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, sent{topic, string(payload)})
	return nil
}

type fixedSensor struct {
	temp  float64
	reads int
}

func (s *fixedSensor) ReadTemperature() float64 {
	s.reads++
	return s.temp
}

func TestTopics(t *testing.T) {
	tp := NewTopics("")
	if tp.CurrentTemp != "/Stue/thermostat/currentTemp" ||
		tp.TargetTemp != "/Stue/thermostat/targetTemp" ||
		tp.TargetTempChange != "/Stue/thermostat/targetTempChange" ||
		tp.OutsideTemp != "/Stue/thermostat/outsideTemp" {
		t.Fatalf("topics = %+v", tp)
	}
	subs := tp.Subscriptions()
	if len(subs) != 2 || subs[0] != tp.TargetTemp || subs[1] != tp.OutsideTemp {
		t.Fatalf("subscriptions = %v", subs)
	}
}

func TestTickPublishesAfterInterval(t *testing.T) {
	rec := &recorder{}
	sens := &fixedSensor{temp: 22.3}
	p := NewPublisher(rec, sens, NewTopics(""))
	st := state.New()
	st.LastPublish = 5 * time.Second

	p.Tick(15*time.Second, st) // exactly 10s: not yet
	if len(rec.msgs) != 0 || sens.reads != 0 {
		t.Fatalf("published early: %v", rec.msgs)
	}

	now := 15*time.Second + time.Millisecond
	p.Tick(now, st)
	if len(rec.msgs) != 1 {
		t.Fatalf("msgs = %v", rec.msgs)
	}
	if rec.msgs[0] != (sent{"/Stue/thermostat/currentTemp", "22.3"}) {
		t.Fatalf("msg = %+v", rec.msgs[0])
	}
	if st.LastPublish != now || st.CurrentTemp != 22.3 || !st.Updated {
		t.Fatalf("state = %+v", st)
	}
}

func TestTickCadence(t *testing.T) {
	for _, step := range []time.Duration{time.Millisecond, 250 * time.Millisecond, 3 * time.Second} {
		rec := &recorder{}
		p := NewPublisher(rec, &fixedSensor{temp: 20}, NewTopics(""))
		st := state.New()

		var stamps []time.Duration
		for now := time.Duration(0); now <= 10*time.Minute; now += step {
			before := len(rec.msgs)
			p.Tick(now, st)
			if len(rec.msgs) > before {
				stamps = append(stamps, now)
			}
		}

		if len(stamps) == 0 {
			t.Fatalf("step %v: no publishes", step)
		}
		for i := 1; i < len(stamps); i++ {
			gap := stamps[i] - stamps[i-1]
			if gap <= PublishInterval || gap > PublishInterval+step {
				t.Fatalf("step %v: gap %v between publishes", step, gap)
			}
		}
		// one publish per window, no catch-up bursts
		windows := int((10 * time.Minute) / PublishInterval)
		if len(stamps) > windows || len(stamps) < windows*10/(10+int(step/time.Second)+1) {
			t.Fatalf("step %v: %d publishes in %d windows", step, len(stamps), windows)
		}
	}
}

func TestTickAfterStall(t *testing.T) {
	rec := &recorder{}
	p := NewPublisher(rec, &fixedSensor{temp: 20}, NewTopics(""))
	st := state.New()

	p.Tick(time.Minute, st)
	if len(rec.msgs) != 1 || st.LastPublish != time.Minute {
		t.Fatalf("msgs = %v", rec.msgs)
	}
	p.Tick(time.Minute+time.Second, st)
	if len(rec.msgs) != 1 {
		t.Fatal("stall caused a catch-up publish")
	}
}

func TestTickSensorFailure(t *testing.T) {
	rec := &recorder{}
	p := NewPublisher(rec, &fixedSensor{temp: math.NaN()}, NewTopics(""))
	st := state.New()

	p.Tick(11*time.Second, st)
	if len(rec.msgs) != 1 || rec.msgs[0].payload != "NaN" {
		t.Fatalf("msgs = %v", rec.msgs)
	}
	if !math.IsNaN(st.CurrentTemp) {
		t.Fatalf("current = %v", st.CurrentTemp)
	}
}

func TestTickPublishErrorIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("down")}
	p := NewPublisher(rec, &fixedSensor{temp: 19.75}, NewTopics(""))
	st := state.New()

	p.Tick(11*time.Second, st)
	if st.LastPublish != 11*time.Second || !st.Updated {
		t.Fatalf("state = %+v", st)
	}
}

func TestHandleMessage(t *testing.T) {
	tp := NewTopics("")
	tests := []struct {
		name        string
		topic       string
		payload     string
		wantTarget  string
		wantOutside string
		wantUpdated bool
	}{
		{"target", tp.TargetTemp, "21.5", "21.5", "00.0", true},
		{"outside", tp.OutsideTemp, "-3.2", "00.0", "-3.2", true},
		{"target truncated", tp.TargetTemp, "123.456", "123.4", "00.0", true},
		{"empty payload", tp.OutsideTemp, "", "00.0", "", true},
		{"unknown topic", "/Stue/thermostat/other", "99.9", "00.0", "00.0", false},
		{"prefix only", "/Stue/thermostat/targetTempX", "99.9", "00.0", "00.0", false},
		{"current not subscribed", tp.CurrentTemp, "99.9", "00.0", "00.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPublisher(&recorder{}, &fixedSensor{}, tp)
			st := state.New()
			p.HandleMessage(tt.topic, []byte(tt.payload), st)

			if got := st.TargetTemp.String(); got != tt.wantTarget {
				t.Errorf("target = %q, want %q", got, tt.wantTarget)
			}
			if got := st.OutsideTemp.String(); got != tt.wantOutside {
				t.Errorf("outside = %q, want %q", got, tt.wantOutside)
			}
			if st.Updated != tt.wantUpdated {
				t.Errorf("updated = %v, want %v", st.Updated, tt.wantUpdated)
			}
		})
	}
}

func TestDrainRotation(t *testing.T) {
	tp := NewTopics("")
	rec := &recorder{}
	p := NewPublisher(rec, &fixedSensor{}, tp)
	var reg rotary.Register

	if d := p.DrainRotation(&reg); d != rotary.None || len(rec.msgs) != 0 {
		t.Fatalf("idle drain published %v", rec.msgs)
	}

	reg.Post(rotary.Clockwise)
	reg.Post(rotary.CounterClockwise)
	if d := p.DrainRotation(&reg); d != rotary.CounterClockwise {
		t.Fatalf("drained %v", d)
	}
	reg.Post(rotary.Clockwise)
	p.DrainRotation(&reg)
	p.DrainRotation(&reg)

	want := []sent{
		{tp.TargetTempChange, "dec"},
		{tp.TargetTempChange, "inc"},
	}
	if len(rec.msgs) != len(want) {
		t.Fatalf("msgs = %v", rec.msgs)
	}
	for i := range want {
		if rec.msgs[i] != want[i] {
			t.Errorf("msg %d = %+v, want %+v", i, rec.msgs[i], want[i])
		}
	}
}

func TestDrainRotationFromRing(t *testing.T) {
	rec := &recorder{}
	p := NewPublisher(rec, &fixedSensor{}, NewTopics(""))
	ring := rotary.NewRing(4)
	ring.Post(rotary.Clockwise)
	ring.Post(rotary.Clockwise)
	ring.Post(rotary.CounterClockwise)

	for p.DrainRotation(ring) != rotary.None {
	}
	if len(rec.msgs) != 3 || rec.msgs[2].payload != "dec" {
		t.Fatalf("msgs = %v", rec.msgs)
	}
}
