package remote

import "errors"

var (
	ErrHealthCheck     = errors.New("health: server unreachable")
	ErrSyncRequest     = errors.New("sync: request failed")
	ErrSyncRejected    = errors.New("sync: remote rejected operation")
	ErrSyncCredentials = errors.New("sync: invalid credentials")
)
