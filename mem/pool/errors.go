package pool

import "errors"

var (
	// ErrBadConfig indicates a Config or SizeClassConfig that cannot build a pool.
	ErrBadConfig = errors.New("pool: invalid configuration")

	// ErrClosed is returned by operations on a closed pool.
	ErrClosed = errors.New("pool: closed")
)
