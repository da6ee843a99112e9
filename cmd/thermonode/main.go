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

package main

import (
	"os"
	"time"

	"thermonode/internal/config"
	"thermonode/internal/netattach"
	"thermonode/internal/node"
	"thermonode/internal/telemetry"
	"thermonode/pkg/appctx"
	"thermonode/pkg/clock"
	"thermonode/pkg/eventbus"
	"thermonode/pkg/logger"
	"thermonode/pkg/mqttclient"
	"thermonode/pkg/rootserv"
	"thermonode/pkg/service"
	"thermonode/pkg/sysmon"
)

func main() {
	appConf := config.Load()
	logger.Init(os.Stdout, appConf.Debug)
	log := logger.New("Main")

	// use conf to pass eventbus to whoever needs it
	appConf.EventBus = eventbus.New()

	ctx, ctxCancel := appctx.New()
	clk := clock.System()

	board, err := openHardware(appConf, clk)
	if err != nil {
		log.Error("hardware: %v", err)
		os.Exit(-1)
	}

	attacher, err := netattach.New(appConf.Network.Driver, appConf.Network.Interface)
	if err != nil {
		board.Close()
		log.Error("network: %v", err)
		os.Exit(-1)
	}

	mqtt := mqttclient.New(mqttclient.Options{
		Host:           appConf.MQTT.Host,
		Port:           appConf.MQTT.Port,
		Username:       appConf.MQTT.Username,
		Password:       appConf.MQTT.Password,
		ConnectTimeout: 10 * time.Second,
		InboxSize:      appConf.MQTT.InboxSize,
	})

	thermoNode := node.New(node.Config{
		Credentials: netattach.Credentials{
			SSID:     appConf.Network.SSID,
			Password: appConf.Network.Password,
		},
		ClientPrefix: appConf.MQTT.ClientPrefix,
		Topics:       telemetry.NewTopics(appConf.MQTT.TopicPrefix),
	}, node.Deps{
		Clock:    clk,
		Attacher: attacher,
		Session:  mqtt,
		Sensor:   board.sensor,
		Sink:     board.sink,
		Surface:  board.surface,
		Bus:      appConf.EventBus,
	})

	// init services
	server := rootserv.New(appConf.HTTPAddr, "Thermostat Node")
	mirrorService := node.NewWebService(appConf.EventBus, thermoNode.Stats)
	sysMonitorService := sysmon.New(func() any { return thermoNode.Stats() })

	// attach web handler enabled services
	server.Attach("/", "Display Mirror", mirrorService)
	server.Attach("/node", "Display Mirror", mirrorService)
	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)

	// start runnable services
	exitCh := service.Start(ctx, ctxCancel, []service.Runnable{
		thermoNode,
		mirrorService,
		server,
	})

	// waits for all services to stop
	code := <-exitCh
	mqtt.Close()
	board.Close()
	appConf.EventBus.Close()
	os.Exit(code)
}
