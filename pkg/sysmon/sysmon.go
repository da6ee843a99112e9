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

package sysmon

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"thermonode/pkg/logger"
)

type CPU struct {
	SystemPercent  float64 `json:"system_percent"`
	ProcessPercent float64 `json:"process_percent"`
	Load1          float64 `json:"load1"`
}

type Memory struct {
	SystemTotal uint64 `json:"system_total"`
	SystemUsed  uint64 `json:"system_used"`
	SystemFree  uint64 `json:"system_free"`
	ProcessRSS  uint64 `json:"process_rss"`
}

type Disk struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

// Snapshot is one reading of the board's health. SoCTempC is the hottest
// on-board thermal zone, which also warms an enclosed room sensor.
type Snapshot struct {
	GoVersion string  `json:"go_version"`
	UptimeSec uint64  `json:"uptime_sec"`
	SoCTempC  float64 `json:"soc_temp_c"`
	CPU       CPU     `json:"cpu"`
	Memory    Memory  `json:"memory"`
	Disk      Disk    `json:"disk"`
	App       any     `json:"app,omitempty"`
}

type Service struct {
	log *logger.Logger
	app func() any
}

// New returns the monitor. app, if not nil, adds application counters to
// every snapshot.
func New(app func() any) *Service {
	return &Service{
		log: logger.New("System Monitor"),
		app: app,
	}
}

// Collect gathers a snapshot. Readings that fail are left zero.
func (s *Service) Collect() Snapshot {
	snap := Snapshot{GoVersion: runtime.Version()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPU.SystemPercent = pct[0]
	}
	if avg, err := load.Avg(); err == nil {
		snap.CPU.Load1 = avg.Load1
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		snap.Memory.SystemTotal = vmem.Total
		snap.Memory.SystemUsed = vmem.Used
		snap.Memory.SystemFree = vmem.Available
	}
	if total, free, used, err := DiskUsage("/"); err == nil {
		snap.Disk = Disk{Total: total, Used: used, Free: free}
	}
	if up, err := host.Uptime(); err == nil {
		snap.UptimeSec = up
	}
	if temps, err := host.SensorsTemperatures(); err == nil {
		for _, t := range temps {
			if t.Temperature > snap.SoCTempC {
				snap.SoCTempC = t.Temperature
			}
		}
	}

	// Current process stats
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			snap.Memory.ProcessRSS = memInfo.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			snap.CPU.ProcessPercent = pct
		}
	}

	if s.app != nil {
		snap.App = s.app()
	}
	return snap
}

var page = template.Must(template.New("sysmon").Funcs(template.FuncMap{
	"gb": func(v uint64) float64 { return float64(v) / (1024 * 1024 * 1024) },
	"mb": func(v uint64) float64 { return float64(v) / (1024 * 1024) },
	"json": func(v any) string {
		b, _ := json.MarshalIndent(v, "", "  ")
		return string(b)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<title>System Monitor</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		h1 { color: #333; }
		table { border-collapse: collapse; width: 60%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>System Monitor</h1>
	<p>Go {{.GoVersion}}, up {{.UptimeSec}} s, SoC {{printf "%.1f" .SoCTempC}} °C</p>
	<h2>CPU</h2>
	<table>
		<tr><th>System %</th><th>Process %</th><th>Load 1m</th></tr>
		<tr><td>{{printf "%.2f" .CPU.SystemPercent}}</td><td>{{printf "%.2f" .CPU.ProcessPercent}}</td><td>{{printf "%.2f" .CPU.Load1}}</td></tr>
	</table>
	<h2>Memory</h2>
	<table>
		<tr><th>System Total</th><th>System Used</th><th>System Free</th><th>Process RSS</th></tr>
		<tr>
			<td>{{printf "%.2f" (gb .Memory.SystemTotal)}} GB</td>
			<td>{{printf "%.2f" (gb .Memory.SystemUsed)}} GB</td>
			<td>{{printf "%.2f" (gb .Memory.SystemFree)}} GB</td>
			<td>{{printf "%.2f" (mb .Memory.ProcessRSS)}} MB</td>
		</tr>
	</table>
	<h2>Disk (/)</h2>
	<table>
		<tr><th>Total</th><th>Used</th><th>Free</th></tr>
		<tr>
			<td>{{printf "%.2f" (gb .Disk.Total)}} GB</td>
			<td>{{printf "%.2f" (gb .Disk.Used)}} GB</td>
			<td>{{printf "%.2f" (gb .Disk.Free)}} GB</td>
		</tr>
	</table>
	{{if .App}}<h2>Node</h2>
	<pre>{{json .App}}</pre>{{end}}
</body>
</html>
`))

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := s.Collect()

	// JSON API
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			s.log.Error("encode: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, snap); err != nil {
		s.log.Error("render: %v", err)
	}
}
