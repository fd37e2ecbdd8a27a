package domain

import "time"

type ConnectivityState string

const (
	StateUnknown           ConnectivityState = "unknown"
	StateOnline            ConnectivityState = "online"
	StateOffline           ConnectivityState = "offline"
	StateServerUnreachable ConnectivityState = "server_unreachable"
)

type ConnectivityStatus struct {
	State               ConnectivityState `json:"state"`
	LastChange          time.Time         `json:"last_change"`
	LastProbe           time.Time         `json:"last_probe"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	Pending             int               `json:"pending"`
}
