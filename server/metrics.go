package server

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"sync/atomic"
	"time"
)

// Metrics receives connection and command events from the server.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ConnectionOpened is called when a dispatcher starts
	ConnectionOpened()

	// ConnectionClosed is called when a dispatcher ends
	ConnectionClosed()

	// CommandProcessed records a successfully executed command
	CommandProcessed(cmd string, duration time.Duration)

	// CommandFailed records a command rejected by the command model
	CommandFailed(kind string)

	// ProtocolError records a framing error that closed a connection
	ProtocolError()
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened()                       {}
func (noopMetrics) ConnectionClosed()                       {}
func (noopMetrics) CommandProcessed(string, time.Duration) {}
func (noopMetrics) CommandFailed(string)                    {}
func (noopMetrics) ProtocolError()                          {}

// Stats is a snapshot of server counters
type Stats struct {
	ConnectedClients int64
	TotalConnections int64
	TotalCommands    int64
	TotalErrors      int64
}

// counters tracks Stats and forwards every event to next
type counters struct {
	next Metrics

	connected   atomic.Int64
	connections atomic.Int64
	commands    atomic.Int64
	errors      atomic.Int64
}

func newCounters(next Metrics) *counters {
	if next == nil {
		next = noopMetrics{}
	}
	return &counters{next: next}
}

func (c *counters) ConnectionOpened() {
	c.connected.Add(1)
	c.connections.Add(1)
	c.next.ConnectionOpened()
}

func (c *counters) ConnectionClosed() {
	c.connected.Add(-1)
	c.next.ConnectionClosed()
}

func (c *counters) CommandProcessed(cmd string, d time.Duration) {
	c.commands.Add(1)
	c.next.CommandProcessed(cmd, d)
}

func (c *counters) CommandFailed(kind string) {
	c.commands.Add(1)
	c.errors.Add(1)
	c.next.CommandFailed(kind)
}

func (c *counters) ProtocolError() {
	c.errors.Add(1)
	c.next.ProtocolError()
}

func (c *counters) snapshot() Stats {
	return Stats{
		ConnectedClients: c.connected.Load(),
		TotalConnections: c.connections.Load(),
		TotalCommands:    c.commands.Load(),
		TotalErrors:      c.errors.Load(),
	}
}
