package server

import (
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/raniellyferreira/memkv/protocol"
)

// Session is the per-connection state: an identifier for logs and the
// buffer of bytes received but not yet parsed.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time

	reader   *protocol.Reader
	commands atomic.Int64
	lastCmd  atomic.Int64 // unix nanos
	buffered atomic.Int64
}

func newSession(remote string, parser protocol.Parser) *Session {
	now := time.Now()
	s := &Session{
		ID:         ulid.Make().String(),
		RemoteAddr: remote,
		CreatedAt:  now,
		reader:     protocol.NewReaderWithParser(parser),
	}
	s.lastCmd.Store(now.UnixNano())
	return s
}

// Commands returns the number of commands dispatched on this session
func (s *Session) Commands() int64 {
	return s.commands.Load()
}

// LastCommand returns when the session last dispatched a command
func (s *Session) LastCommand() time.Time {
	return time.Unix(0, s.lastCmd.Load())
}

// Buffered returns the number of received bytes not parsed yet. It may be
// called from any goroutine while the session is live.
func (s *Session) Buffered() int {
	return int(s.buffered.Load())
}

// syncBuffered publishes the reader's pending byte count; only the goroutine
// owning the reader calls it.
func (s *Session) syncBuffered() {
	s.buffered.Store(int64(s.reader.Buffered()))
}

func (s *Session) touch() {
	s.commands.Add(1)
	s.lastCmd.Store(time.Now().UnixNano())
}
