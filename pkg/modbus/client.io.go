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
	"encoding/binary"
	"fmt"
	"math"
)

// ReadTyped reads a register value and converts it into the requested type T.
// Supported T: float32, float64, int, bool
func ReadTyped[T any](ctx context.Context, c *Client, name string) (T, error) {
	var zero T

	val, err := c.ReadValue(ctx, name)
	if err != nil {
		return zero, err
	}

	switch any(zero).(type) {
	case float32:
		f, err := toFloat64(val)
		if err != nil {
			return zero, err
		}
		return any(float32(f)).(T), nil

	case float64:
		f, err := toFloat64(val)
		if err != nil {
			return zero, err
		}
		return any(f).(T), nil

	case int:
		f, err := toFloat64(val)
		if err != nil {
			return zero, err
		}
		return any(int(math.Round(f))).(T), nil

	case bool:
		b, ok := val.(bool)
		if !ok {
			return zero, fmt.Errorf("cannot convert %T to bool", val)
		}
		return any(b).(T), nil

	default:
		return zero, fmt.Errorf("unsupported type parameter %T", zero)
	}
}

// ReadValue reads a register by name and returns its decoded value.
func (c *Client) ReadValue(ctx context.Context, name string) (any, error) {
	regDef, ok := c.config.Registers[name]
	if !ok {
		return nil, fmt.Errorf("register %q not configured", name)
	}

	raw, err := c.ReadRegisters(ctx, regDef.Address, registerCount(regDef.DataType))
	if err != nil {
		return nil, fmt.Errorf("register read failed for %s: %w", name, err)
	}
	val, err := Decode(regDef, raw)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}
	return val, nil
}

// Decode converts raw big-endian register data. Results are:
//   - float32 (for float32 or scaled int16/uint16 registers)
//   - int16   (for int16 registers without scaling)
//   - uint16  (for uint16 registers without scaling)
//   - bool    (for bool registers)
func Decode(regDef RegisterDef, raw []byte) (any, error) {
	n := int(registerCount(regDef.DataType))
	if n == 0 {
		return nil, fmt.Errorf("unsupported data type %q", regDef.DataType)
	}
	if len(raw) < n*2 {
		return nil, fmt.Errorf("insufficient data: %d bytes", len(raw))
	}

	var valf64 float64
	switch regDef.DataType {
	case "float32":
		valf64 = float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))
		if regDef.Scale == 0 {
			return float32(valf64), nil
		}

	case "int16":
		valf64 = float64(int16(binary.BigEndian.Uint16(raw)))
		if regDef.Scale == 0 {
			return int16(valf64), nil
		}

	case "uint16":
		valf64 = float64(binary.BigEndian.Uint16(raw))
		if regDef.Scale == 0 {
			return uint16(valf64), nil
		}

	case "bool":
		return binary.BigEndian.Uint16(raw) != 0, nil
	}

	// if requires scaling, always return float32
	valf64 = valf64*regDef.Scale + regDef.Offset
	return float32(valf64), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case bool:
		if n {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
