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
	"math"
	"testing"
)

const sampleYAML = `
modbus:
  host: 192.168.1.40
registers:
  temperature:
    address: 0
    data_type: int16
    scale: 0.1
    description: room temperature
  raw:
    address: 4
    data_type: float32
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Modbus.Host != "192.168.1.40" || cfg.Modbus.Port != 502 || cfg.Modbus.SlaveID != 1 || cfg.Modbus.Timeout != 2 {
		t.Fatalf("conn = %+v", cfg.Modbus)
	}
	if cfg.Registers["temperature"].Scale != 0.1 {
		t.Fatalf("registers = %+v", cfg.Registers)
	}

	if _, err := ParseConfig([]byte("registers:\n  x:\n    data_type: uint32\n")); err == nil {
		t.Fatal("expected unsupported data_type error")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		def  RegisterDef
		raw  []byte
		want any
	}{
		{"int16", RegisterDef{DataType: "int16"}, []byte{0xff, 0x38}, int16(-200)},
		{"int16 scaled", RegisterDef{DataType: "int16", Scale: 0.1}, []byte{0x00, 0xdf}, float32(22.3)},
		{"uint16", RegisterDef{DataType: "uint16"}, []byte{0x01, 0x00}, uint16(256)},
		{"uint16 offset", RegisterDef{DataType: "uint16", Scale: 1, Offset: -40}, []byte{0x00, 0x3c}, float32(20)},
		{"float32", RegisterDef{DataType: "float32"}, []byte{0x41, 0xb2, 0x00, 0x00}, float32(22.25)},
		{"bool", RegisterDef{DataType: "bool"}, []byte{0x00, 0x01}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.def, tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if f, ok := tt.want.(float32); ok {
				g, ok := got.(float32)
				if !ok || math.Abs(float64(g-f)) > 1e-4 {
					t.Fatalf("got %v (%T), want %v", got, got, f)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	if _, err := Decode(RegisterDef{DataType: "float32"}, []byte{0, 1}); err == nil {
		t.Error("short data accepted")
	}
}

type fakeReader struct {
	data  []byte
	errs  []error
	calls int
}

func (f *fakeReader) ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]byte, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.data, nil
}

func testClient(t *testing.T, r *fakeReader) (*Client, *int, *int) {
	t.Helper()
	cfg, err := ParseConfig([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(cfg)
	dials, closes := 0, 0
	c.dial = func(ctx context.Context) (registerReader, func() error, error) {
		dials++
		return r, func() error { closes++; return nil }, nil
	}
	return c, &dials, &closes
}

func TestReadTypedScaledTemperature(t *testing.T) {
	c, dials, _ := testClient(t, &fakeReader{data: []byte{0x00, 0xdf}})
	v, err := ReadTyped[float64](context.Background(), c, "temperature")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-22.3) > 1e-4 {
		t.Fatalf("v = %v", v)
	}
	if _, err := ReadTyped[float64](context.Background(), c, "temperature"); err != nil {
		t.Fatal(err)
	}
	if *dials != 1 {
		t.Fatalf("dials = %d", *dials)
	}
}

func TestReadReconnectsOnConnError(t *testing.T) {
	r := &fakeReader{data: []byte{0, 1}, errs: []error{errors.New("read tcp: connection reset by peer")}}
	c, dials, closes := testClient(t, r)
	if _, err := c.ReadRegisters(context.Background(), 0, 1); err != nil {
		t.Fatal(err)
	}
	if *dials != 2 || *closes != 1 || r.calls != 2 {
		t.Fatalf("dials=%d closes=%d calls=%d", *dials, *closes, r.calls)
	}
}

func TestReadProtocolErrorNotRetried(t *testing.T) {
	r := &fakeReader{errs: []error{errors.New("modbus: exception '2' (illegal data address)")}}
	c, dials, _ := testClient(t, r)
	if _, err := c.ReadRegisters(context.Background(), 0, 1); err == nil {
		t.Fatal("expected error")
	}
	if *dials != 1 || r.calls != 1 {
		t.Fatalf("dials=%d calls=%d", *dials, r.calls)
	}
}

func TestReadUnknownRegister(t *testing.T) {
	c, _, _ := testClient(t, &fakeReader{})
	if _, err := c.ReadValue(context.Background(), "nope"); err == nil {
		t.Fatal("expected error")
	}
}
