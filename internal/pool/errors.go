package pool

import "errors"

var (
	// ErrUnassignedPort is returned by GetOrCreate when the requested port
	// matches no range in the pool's portassign.Table.
	ErrUnassignedPort = errors.New("pool: port has no device type assignment")

	// ErrCapacityExceeded is returned when max_devices is reached and no
	// idle device past idle_ttl is available to evict.
	ErrCapacityExceeded = errors.New("pool: capacity exceeded")

	// ErrBindFailed wraps a UDP listen/socket-option failure during device
	// materialization.
	ErrBindFailed = errors.New("pool: failed to bind device socket")

	// ErrClosed is returned by GetOrCreate once the pool has been stopped.
	ErrClosed = errors.New("pool: pool is closed")
)
