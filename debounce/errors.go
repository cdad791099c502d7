package debounce

import "github.com/pkg/errors"

var (
	ErrDisposed      = errors.New("debouncer is disposed")
	ErrNilAction     = errors.New("debounce action is nil")
	ErrNegativeDelay = errors.New("debounce delay must not be negative")
)
