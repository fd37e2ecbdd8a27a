package network

import (
	"context"
	"errors"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
)

func lister(ifaces []psnet.InterfaceStat, err error) InterfaceLister {
	return func(ctx context.Context) ([]psnet.InterfaceStat, error) {
		return ifaces, err
	}
}

func TestInterfaceProbe(t *testing.T) {
	addr := psnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}}
	loop := psnet.InterfaceStat{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}}

	tests := []struct {
		name   string
		ifaces []psnet.InterfaceStat
		err    error
		want   bool
	}{
		{"loopback only", []psnet.InterfaceStat{loop}, nil, false},
		{"ethernet up", []psnet.InterfaceStat{loop, {Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: addr}}, nil, true},
		{"ethernet down", []psnet.InterfaceStat{loop, {Name: "eth0", Flags: []string{"broadcast"}, Addrs: addr}}, nil, false},
		{"up without address", []psnet.InterfaceStat{{Name: "wlan0", Flags: []string{"up"}}}, nil, false},
		{"listing fails", nil, errors.New("permission denied"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewInterfaceProbe(ProbeConfig{Lister: lister(tt.ifaces, tt.err)})
			if got := p.Reachable(context.Background()); got != tt.want {
				t.Errorf("Reachable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisabledProbeIsAlwaysReachable(t *testing.T) {
	p := NewInterfaceProbe(ProbeConfig{Disabled: true, Lister: lister(nil, nil)})
	if !p.Reachable(context.Background()) {
		t.Error("disabled probe reported unreachable")
	}
}
