package protocol

import (
	"errors"
	"io"
)

const (
	// defaultReadSize is the minimum free space made available per read
	defaultReadSize = 4096
)

// Reader accumulates bytes received from a stream and parses RESP values
// out of them. Bytes that do not yet form a complete value stay buffered
// until more data is fed.
//
// Values returned by Next alias the internal buffer and are valid only until
// the next call to Feed, ReadFrom or Next; use Value.Clone to keep them.
type Reader struct {
	parser Parser
	buf    []byte
	start  int // first unconsumed byte
	err    error
}

// NewReader creates a reader using the default parser limits
func NewReader() *Reader {
	return NewReaderWithParser(DefaultParser)
}

// NewReaderWithParser creates a reader that parses with p
func NewReaderWithParser(p Parser) *Reader {
	return &Reader{
		parser: p,
		buf:    make([]byte, 0, defaultReadSize),
	}
}

// Feed appends p to the unparsed tail of the buffer
func (r *Reader) Feed(p []byte) {
	r.compact(len(p))
	r.buf = append(r.buf, p...)
}

// ReadFrom performs a single Read from src into the buffer. It returns the
// number of bytes read; io.EOF is returned as is when src has no more data.
func (r *Reader) ReadFrom(src io.Reader) (int, error) {
	r.compact(defaultReadSize)
	if cap(r.buf)-len(r.buf) < defaultReadSize {
		grown := make([]byte, len(r.buf), 2*cap(r.buf)+defaultReadSize)
		copy(grown, r.buf)
		r.buf = grown
	}

	n, err := src.Read(r.buf[len(r.buf):cap(r.buf)])
	if n < 0 {
		n = 0
	}
	r.buf = r.buf[:len(r.buf)+n]
	if n > 0 && errors.Is(err, io.EOF) {
		// Deliver the bytes now, report EOF on the next read.
		err = nil
	}
	return n, err
}

// Next parses the next value from the buffered bytes and advances past it.
// It returns ErrIncomplete when more bytes are needed. A syntax error is
// sticky: the stream cannot be re-synchronized after it.
func (r *Reader) Next() (Value, error) {
	if r.err != nil {
		return Value{}, r.err
	}

	v, n, err := r.parser.Parse(r.buf[r.start:])
	if err != nil {
		if errors.Is(err, ErrSyntax) {
			var se *SyntaxError
			if errors.As(err, &se) {
				se.Offset += r.start
			}
			r.err = err
		}
		return Value{}, err
	}

	r.start += n
	if r.start == len(r.buf) {
		// Everything consumed: rewind in place, no copy needed.
		r.start = 0
		r.buf = r.buf[:0]
	}
	return v, nil
}

// Buffered returns the number of bytes received but not yet parsed
func (r *Reader) Buffered() int {
	return len(r.buf) - r.start
}

// Err returns the sticky syntax error, if any
func (r *Reader) Err() error {
	return r.err
}

// Reset discards all buffered data and any sticky error
func (r *Reader) Reset() {
	r.buf = r.buf[:0]
	r.start = 0
	r.err = nil
}

// compact moves the unparsed tail to the front of the buffer when that
// frees enough room for need more bytes.
func (r *Reader) compact(need int) {
	if r.start == 0 {
		return
	}
	if cap(r.buf)-len(r.buf) >= need && r.start < len(r.buf)/2 {
		return
	}
	n := copy(r.buf, r.buf[r.start:])
	r.buf = r.buf[:n]
	r.start = 0
}
