package sessionsync

import "time"

const (
	// Max bytes per websocket frame read.
	maxFrameBytes = 4 << 10

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3

	// Per-connection inbound budget.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second

	defaultSendQueueSize = 32
	minSendQueueSize     = 4

	defaultWriteTimeout = 5 * time.Second
	defaultReadIdle     = 2 * time.Minute
	closeGrace          = 1 * time.Second
)
