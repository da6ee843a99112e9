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

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"thermonode/pkg/eventbus"
	"thermonode/pkg/modbus"
)

//go:embed thermonode.json
var defaultFile []byte

//go:embed sensor.modbus.yml
var modbusFile []byte

type NetworkConfig struct {
	// Driver is "nmcli" for WiFi or "iface" to wait on a wired interface.
	Driver    string `json:"driver"`
	Interface string `json:"interface"`
	SSID      string `json:"ssid"`
	Password  string `json:"password"`
}

type MQTTConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientPrefix string `json:"client_prefix"`
	TopicPrefix  string `json:"topic_prefix"`
	InboxSize    int    `json:"inbox_size"`
}

type RotaryConfig struct {
	Chip string `json:"chip"`
	PinA int    `json:"pin_a"`
	PinB int    `json:"pin_b"`

	// QueueSize > 0 queues every rotation event instead of keeping only the
	// latest. Must be a power of two.
	QueueSize int `json:"queue_size"`
}

type DisplayConfig struct {
	// Driver is "oled" or "console".
	Driver string `json:"driver"`
	I2CBus string `json:"i2c_bus"`
}

type SensorConfig struct {
	// Driver is "bme280" or "modbus".
	Driver   string `json:"driver"`
	I2CBus   string `json:"i2c_bus"`
	I2CAddr  uint16 `json:"i2c_addr"`
	Register string `json:"register"`

	MinC     float64 `json:"min_c"`
	MaxC     float64 `json:"max_c"`
	MaxStepC float64 `json:"max_step_c"`
}

type Config struct {
	Network  NetworkConfig `json:"network"`
	MQTT     MQTTConfig    `json:"mqtt"`
	Rotary   RotaryConfig  `json:"rotary"`
	Display  DisplayConfig `json:"display"`
	Sensor   SensorConfig  `json:"sensor"`
	HTTPAddr string        `json:"http_addr"`
	Debug    bool          `json:"debug"`

	// not loaded from the json file
	Modbus   *modbus.Config `json:"-"`
	EventBus *eventbus.Bus  `json:"-"`
}

// Load returns the configuration compiled into the binary.
func Load() *Config {
	c, err := Parse(defaultFile)
	if err != nil {
		log.Fatalf("decode config: %v", err)
	}
	if c.Sensor.Driver == "modbus" {
		mc, err := modbus.ParseConfig(modbusFile)
		if err != nil {
			log.Fatalf("decode modbus config: %v", err)
		}
		c.Modbus = mc
	}
	return c
}

// Parse decodes a JSON configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// apply defaults
	if c.Network.Driver == "" {
		c.Network.Driver = "nmcli"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientPrefix == "" {
		c.MQTT.ClientPrefix = "thermonode"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "/Stue/thermostat"
	}
	if c.MQTT.InboxSize == 0 {
		c.MQTT.InboxSize = 16
	}
	if c.Rotary.Chip == "" {
		c.Rotary.Chip = "gpiochip0"
	}
	if c.Rotary.PinA == 0 && c.Rotary.PinB == 0 {
		c.Rotary.PinA, c.Rotary.PinB = 12, 13
	}
	if c.Display.Driver == "" {
		c.Display.Driver = "oled"
	}
	if c.Sensor.Driver == "" {
		c.Sensor.Driver = "bme280"
	}
	if c.Sensor.I2CAddr == 0 {
		c.Sensor.I2CAddr = 0x76
	}
	if c.Sensor.Register == "" {
		c.Sensor.Register = "temperature"
	}
	if c.Sensor.MinC == 0 && c.Sensor.MaxC == 0 {
		c.Sensor.MinC, c.Sensor.MaxC = -40, 85
	}
	if c.Sensor.MaxStepC == 0 {
		c.Sensor.MaxStepC = 15
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required")
	}
	if q := c.Rotary.QueueSize; q < 0 || q == 1 || q&(q-1) != 0 {
		return fmt.Errorf("rotary.queue_size must be 0 or a power of two >= 2, got %d", q)
	}
	if c.Rotary.PinA == c.Rotary.PinB {
		return fmt.Errorf("rotary pins must differ, both are %d", c.Rotary.PinA)
	}
	switch c.Network.Driver {
	case "nmcli", "iface":
	default:
		return fmt.Errorf("unknown network.driver %q", c.Network.Driver)
	}
	switch c.Display.Driver {
	case "oled", "console":
	default:
		return fmt.Errorf("unknown display.driver %q", c.Display.Driver)
	}
	switch c.Sensor.Driver {
	case "bme280", "modbus":
	default:
		return fmt.Errorf("unknown sensor.driver %q", c.Sensor.Driver)
	}
	if c.Sensor.MinC >= c.Sensor.MaxC {
		return fmt.Errorf("sensor.min_c must be below sensor.max_c")
	}
	return nil
}
