package hmi

import "errors"

var (
	// ErrNoRecord is returned by RecoveryStore.Load when nothing is stored.
	ErrNoRecord = errors.New("no recovery record")
	// ErrNotMounted is returned by Media when no card is present.
	ErrNotMounted = errors.New("media not mounted")
	// ErrNoSuchFile is returned by Media.Open and Media.Resume for unknown names.
	ErrNoSuchFile = errors.New("no such file")
)
