package domain

import "errors"

// Store errors
var (
	ErrStoreOpen     = errors.New("store: failed to open database")
	ErrTransaction   = errors.New("store: transaction failed")
	ErrRead          = errors.New("store: failed to read tasks")
	ErrStoreOutdated = errors.New("store: database schema changed, restart required")
)
