// Package network answers whether the host has a usable network link.
package network

import (
	"context"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

// InterfaceLister returns the host interfaces. Tests replace it.
type InterfaceLister func(ctx context.Context) ([]psnet.InterfaceStat, error)

type ProbeConfig struct {
	// Disabled makes Reachable always report true.
	Disabled bool
	Lister   InterfaceLister
	Logger   *logger.Logger
}

type InterfaceProbe struct {
	disabled bool
	list     InterfaceLister
	logger   *logger.Logger
}

func NewInterfaceProbe(cfg ProbeConfig) *InterfaceProbe {
	list := cfg.Lister
	if list == nil {
		list = func(ctx context.Context) ([]psnet.InterfaceStat, error) {
			return psnet.InterfacesWithContext(ctx)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &InterfaceProbe{disabled: cfg.Disabled, list: list, logger: log}
}

// Reachable reports whether any non-loopback interface is up with an
// address. A listing failure counts as reachable so the health probe still
// gets a say.
func (p *InterfaceProbe) Reachable(ctx context.Context) bool {
	if p.disabled {
		return true
	}
	ifaces, err := p.list(ctx)
	if err != nil {
		p.logger.Warnw("network_probe_list_failed", "error", err)
		return true
	}
	for _, iface := range ifaces {
		if usable(iface) {
			return true
		}
	}
	p.logger.Debugw("network_probe_no_usable_interface", "interfaces", len(ifaces))
	return false
}

func usable(iface psnet.InterfaceStat) bool {
	up, loopback := false, false
	for _, f := range iface.Flags {
		switch f {
		case "up":
			up = true
		case "loopback":
			loopback = true
		}
	}
	return up && !loopback && len(iface.Addrs) > 0
}
