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
	"fmt"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Modbus    ConnConfig             `yaml:"modbus"`
	Registers map[string]RegisterDef `yaml:"registers"`
}

type ConnConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	SlaveID byte   `yaml:"slave_id"`
	Timeout int    `yaml:"timeout"` // seconds
}

type RegisterDef struct {
	Address     uint16  `yaml:"address"`
	DataType    string  `yaml:"data_type"` // "uint16", "int16", "bool", "float32"
	Scale       float64 `yaml:"scale"`     // if set, the raw integer is scaled into a float
	Offset      float64 `yaml:"offset"`
	Description string  `yaml:"description"`
}

// ParseConfig decodes a YAML register map and fills connection defaults.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("modbus config: %w", err)
	}

	if config.Modbus.Port == 0 {
		config.Modbus.Port = 502
	}
	if config.Modbus.SlaveID == 0 {
		config.Modbus.SlaveID = 1
	}
	if config.Modbus.Timeout == 0 {
		config.Modbus.Timeout = 2
	}

	for name, reg := range config.Registers {
		if registerCount(reg.DataType) == 0 {
			return nil, fmt.Errorf("modbus config: register %q has unsupported data_type %q", name, reg.DataType)
		}
	}
	return &config, nil
}

func registerCount(dataType string) uint16 {
	switch dataType {
	case "uint16", "int16", "bool":
		return 1
	case "float32":
		return 2
	default:
		return 0
	}
}
