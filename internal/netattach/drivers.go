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

package netattach

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
)

// Interface waits for a network interface to come up with an IPv4 address.
// Begin does nothing, which suits wired boards and interfaces managed by the
// OS.
type Interface struct {
	Name string
}

func (i *Interface) Begin(ctx context.Context, creds Credentials) error { return nil }

func (i *Interface) Attached() bool { return i.LocalAddr() != "" }

func (i *Interface) LocalAddr() string {
	ifi, err := net.InterfaceByName(i.Name)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return ""
}

// NMCli joins a WiFi network through NetworkManager and then behaves like
// Interface.
type NMCli struct {
	Interface
}

func (n *NMCli) Begin(ctx context.Context, creds Credentials) error {
	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	if n.Name != "" {
		args = append(args, "ifname", n.Name)
	}
	out, err := exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("nmcli: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// New returns the attacher for driver ("nmcli" or "iface").
func New(driver, iface string) (Attacher, error) {
	switch driver {
	case "nmcli":
		return &NMCli{Interface{Name: iface}}, nil
	case "iface", "":
		return &Interface{Name: iface}, nil
	default:
		return nil, fmt.Errorf("unknown network driver %q", driver)
	}
}
