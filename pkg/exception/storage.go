package exception

import "github.com/yanun0323/errors"

// Storage errors
var (
	ErrStorageQueueFull = errors.New("storage: queue full")
	ErrStorageClosed    = errors.New("storage: sink closed")
	ErrMirrorMiss       = errors.New("storage: mirror key not found")
)

// Config errors
var (
	ErrConfigInvalid = errors.New("config: invalid value")
)
