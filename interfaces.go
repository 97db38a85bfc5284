package memkv

import (
	"github.com/raniellyferreira/memkv/server"
)

// MetricsCollector receives connection and command events. It has the same
// method set as server.Metrics; metrics.Prometheus satisfies it.
type MetricsCollector = server.Metrics

// Stats is a point-in-time view of the instance
type Stats struct {
	// Connection stats
	ConnectedClients int64
	TotalConnections int64

	// Command stats
	TotalCommands int64
	TotalErrors   int64

	// Data stats
	KeyCount    int64
	MemoryUsage int64
}
