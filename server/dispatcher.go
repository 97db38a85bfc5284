package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/raniellyferreira/memkv/protocol"
	"github.com/raniellyferreira/memkv/storage"
)

// State is a step of the per-connection state machine
type State int

const (
	// StateAwaitingData waits for the transport to deliver more bytes
	StateAwaitingData State = iota
	// StateTryParse attempts to parse one value from the buffered bytes
	StateTryParse
	// StateDispatch turns a parsed value into a command and runs it
	StateDispatch
	// StateReply appends the reply for the last value or error
	StateReply
	// StateClosed is terminal
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAwaitingData:
		return "awaiting-data"
	case StateTryParse:
		return "try-parse"
	case StateDispatch:
		return "dispatch"
	case StateReply:
		return "reply"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrDispatcherClosed is returned by Run on a dispatcher that already closed
var ErrDispatcherClosed = errors.New("dispatcher closed")

// ErrRateLimited is matched by the error Run returns when the connection's
// rate limiter can never admit another command.
var ErrRateLimited = errors.New("rate limit exceeded")

// TransportError wraps a read or write failure on the connection
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for connection events
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithParser sets the codec limits used for this connection
func WithParser(p protocol.Parser) DispatcherOption {
	return func(d *Dispatcher) {
		d.parser = p
	}
}

// WithRateLimiter throttles command dispatch on this connection
func WithRateLimiter(l *rate.Limiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = l
	}
}

// WithTimeouts sets per-read and per-write deadlines when the transport
// supports them. Zero disables the corresponding deadline.
func WithTimeouts(read, write time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.readTimeout = read
		d.writeTimeout = write
	}
}

// WithStateHook registers fn to observe every state transition
func WithStateHook(fn func(from, to State)) DispatcherOption {
	return func(d *Dispatcher) {
		d.hook = fn
	}
}

// WithRemoteAddr labels the session when the transport is not a net.Conn
func WithRemoteAddr(addr string) DispatcherOption {
	return func(d *Dispatcher) {
		d.remote = addr
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dispatcher drives one connection: it reads bytes into the session
// buffer, parses as many values as are complete, executes each against the
// store in arrival order and writes the replies back.
//
// A Dispatcher is not safe for concurrent use; it is owned by the goroutine
// running it.
type Dispatcher struct {
	conn    io.ReadWriter
	store   storage.Storage
	session *Session

	parser       protocol.Parser
	limiter      *rate.Limiter
	readTimeout  time.Duration
	writeTimeout time.Duration
	remote       string

	logger  *slog.Logger
	metrics Metrics
	hook    func(from, to State)

	state State
	out   []byte // replies not yet written
}

// NewDispatcher creates the dispatcher for one connection. Run consumes the
// connection until the peer closes it, a fatal error occurs or the context
// is cancelled.
func NewDispatcher(conn io.ReadWriter, store storage.Storage, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		conn:    conn,
		store:   store,
		parser:  protocol.DefaultParser,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		state:   StateAwaitingData,
		out:     make([]byte, 0, 512),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.remote == "" {
		if nc, ok := conn.(net.Conn); ok && nc.RemoteAddr() != nil {
			d.remote = nc.RemoteAddr().String()
		}
	}
	d.session = newSession(d.remote, d.parser)
	d.logger = d.logger.With("session", d.session.ID, "remote", d.remote)
	return d
}

// Session returns the connection session
func (d *Dispatcher) Session() *Session {
	return d.session
}

// State returns the current state
func (d *Dispatcher) State() State {
	return d.state
}

// Feed buffers chunk and processes every complete value in it, without
// touching the transport. Replies accumulate until TakeReplies or the next
// flush in Run. It reports whether the connection must be closed.
func (d *Dispatcher) Feed(chunk []byte) (closed bool) {
	if d.state == StateClosed {
		return true
	}
	d.session.reader.Feed(chunk)
	d.session.syncBuffered()
	return d.process(context.Background()) != nil
}

// TakeReplies returns the encoded replies produced so far and clears them
func (d *Dispatcher) TakeReplies() []byte {
	out := append([]byte(nil), d.out...)
	d.out = d.out[:0]
	return out
}

// Run reads from the connection until it ends. It returns nil when the
// peer closes the connection, ctx.Err() when cancelled, the
// *protocol.SyntaxError that forced a close, an error matching
// ErrRateLimited, or a *TransportError.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.state == StateClosed {
		return ErrDispatcherClosed
	}

	d.metrics.ConnectionOpened()
	defer d.metrics.ConnectionClosed()

	// Closing the transport is the only way to unblock a pending Read.
	if c, ok := d.conn.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	d.logger.Debug("session started")
	err := d.loop(ctx)
	d.transition(StateClosed)

	switch {
	case err == nil:
		d.logger.Debug("session ended", "commands", d.session.Commands())
	case ctx.Err() != nil:
		err = ctx.Err()
		d.logger.Debug("session cancelled", "commands", d.session.Commands())
	case errors.Is(err, protocol.ErrSyntax):
		d.logger.Info("closing session after protocol error", "error", err)
	case errors.Is(err, ErrRateLimited):
		d.logger.Warn("closing session after rate limiter failure", "error", err)
	default:
		d.logger.Debug("session transport error", "error", err)
	}
	return err
}

func (d *Dispatcher) loop(ctx context.Context) error {
	dl, hasDeadlines := d.conn.(deadliner)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if hasDeadlines && d.readTimeout > 0 {
			_ = dl.SetReadDeadline(time.Now().Add(d.readTimeout))
		}
		n, rerr := d.session.reader.ReadFrom(d.conn)
		d.session.syncBuffered()

		if n > 0 {
			perr := d.process(ctx)
			if err := d.flush(dl, hasDeadlines); err != nil {
				return err
			}
			if perr != nil {
				return perr
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				// Peer closed; a partial value left in the buffer is dropped
				// without a reply.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Op: "read", Err: rerr}
		}
	}
}

// process runs TryParse, Dispatch and Reply for each complete value in the
// buffer, in order. A non-nil error means the connection must close: the
// sticky syntax error, or the limiter failure.
func (d *Dispatcher) process(ctx context.Context) error {
	for {
		d.transition(StateTryParse)

		v, err := d.session.reader.Next()
		d.session.syncBuffered()
		if errors.Is(err, protocol.ErrIncomplete) {
			d.transition(StateAwaitingData)
			return nil
		}
		if err != nil {
			d.transition(StateReply)
			reply, _ := errorReply(err)
			d.out, _ = protocol.AppendValue(d.out, reply)
			d.metrics.ProtocolError()
			d.transition(StateClosed)
			return err
		}

		if d.limiter != nil {
			if werr := d.limiter.Wait(ctx); werr != nil {
				if ctx.Err() != nil {
					d.transition(StateClosed)
					return ctx.Err()
				}
				d.transition(StateReply)
				d.out, _ = protocol.AppendValue(d.out, protocol.ErrorValue(RateLimitMessage))
				d.transition(StateClosed)
				return fmt.Errorf("%w: %v", ErrRateLimited, werr)
			}
		}

		d.transition(StateDispatch)
		reply := d.dispatch(v)

		d.transition(StateReply)
		d.out, _ = protocol.AppendValue(d.out, reply)
	}
}

func (d *Dispatcher) dispatch(v protocol.Value) protocol.Value {
	start := time.Now()
	d.session.touch()

	cmd, err := protocol.ParseCommand(v)
	if err != nil {
		reply, _ := errorReply(err)
		var cerr *protocol.CommandError
		if errors.As(err, &cerr) {
			d.metrics.CommandFailed(cerr.Kind.String())
		}
		d.logger.Debug("command rejected", "error", err)
		return reply
	}

	reply := Execute(d.store, cmd)
	d.metrics.CommandProcessed(cmd.Name(), time.Since(start))
	return reply
}

func (d *Dispatcher) flush(dl deadliner, hasDeadlines bool) error {
	if len(d.out) == 0 {
		return nil
	}
	if hasDeadlines && d.writeTimeout > 0 {
		_ = dl.SetWriteDeadline(time.Now().Add(d.writeTimeout))
	}
	_, err := d.conn.Write(d.out)
	d.out = d.out[:0]
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (d *Dispatcher) transition(to State) {
	from := d.state
	d.state = to
	if d.hook != nil {
		d.hook(from, to)
	}
}
