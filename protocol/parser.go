package protocol

import (
	"math"
)

const (
	// CRLF is the Redis protocol line terminator
	CRLF = "\r\n"

	// DefaultMaxDepth bounds array nesting
	DefaultMaxDepth = 32

	// DefaultMaxBulkLen is the maximum declared bulk string length (512MB)
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxArrayLen is the maximum declared array element count
	DefaultMaxArrayLen = 1024 * 1024

	// maxLineLen bounds header and simple string lines so a peer cannot make
	// us buffer forever while waiting for a terminator.
	maxLineLen = 64 * 1024

	// preallocLimit caps the capacity reserved for a declared array count
	// before its elements have actually arrived.
	preallocLimit = 1024
)

// Parser parses RESP values out of a byte slice. It keeps no state between
// calls, so a zero-copy parse of the same prefix is always repeatable.
type Parser struct {
	MaxDepth    int
	MaxBulkLen  int64
	MaxArrayLen int64
}

// DefaultParser uses the package default limits
var DefaultParser = Parser{
	MaxDepth:    DefaultMaxDepth,
	MaxBulkLen:  DefaultMaxBulkLen,
	MaxArrayLen: DefaultMaxArrayLen,
}

// Parse parses one value from buf with the default limits
func Parse(buf []byte) (Value, int, error) {
	return DefaultParser.Parse(buf)
}

// Parse parses a single value from the start of buf and returns it with
// the number of bytes it occupies.
//
// If buf is a valid but unfinished prefix, Parse returns ErrIncomplete and
// the caller should retry once more bytes are appended. Malformed input
// yields a *SyntaxError. The returned value aliases buf.
func (p Parser) Parse(buf []byte) (Value, int, error) {
	v, next, err := p.parseValue(buf, 0, 1)
	if err != nil {
		return Value{}, 0, err
	}
	return v, next, nil
}

func (p Parser) parseValue(buf []byte, off, depth int) (Value, int, error) {
	if off >= len(buf) {
		return Value{}, off, ErrIncomplete
	}

	switch ValueType(buf[off]) {
	case TypeSimpleString, TypeError:
		line, next, err := readLine(buf, off+1)
		if err != nil {
			return Value{}, off, err
		}
		return Value{Type: ValueType(buf[off]), Data: line}, next, nil

	case TypeInteger:
		line, next, err := readLine(buf, off+1)
		if err != nil {
			return Value{}, off, err
		}
		n, ok := parseInt64(line)
		if !ok {
			return Value{}, off, syntaxErrorf(off+1, "invalid integer %q", line)
		}
		return Value{Type: TypeInteger, Integer: n}, next, nil

	case TypeBulkString:
		return p.parseBulkString(buf, off)

	case TypeArray:
		return p.parseArray(buf, off, depth)

	default:
		return Value{}, off, syntaxErrorf(off, "unknown RESP type 0x%02x", buf[off])
	}
}

func (p Parser) parseBulkString(buf []byte, off int) (Value, int, error) {
	line, next, err := readLine(buf, off+1)
	if err != nil {
		return Value{}, off, err
	}

	length, err := parseLength(line, off+1)
	if err != nil {
		return Value{}, off, err
	}
	if length == -1 {
		return NullBulkString(), next, nil
	}

	maxLen := p.MaxBulkLen
	if maxLen <= 0 {
		maxLen = DefaultMaxBulkLen
	}
	if length > maxLen {
		return Value{}, off, syntaxErrorf(off+1, "bulk string length %d exceeds limit %d", length, maxLen)
	}

	end := next + int(length)
	// The terminator is checked byte by byte as it arrives: a declared length
	// that overruns the real payload is reported as soon as the byte that
	// should be CR is visible, instead of waiting for more input forever.
	if len(buf) > end && buf[end] != '\r' {
		return Value{}, off, syntaxErrorf(end, "bulk string length %d does not match payload", length)
	}
	if len(buf) > end+1 && buf[end+1] != '\n' {
		return Value{}, off, syntaxErrorf(end+1, "missing CRLF after bulk string")
	}
	if len(buf) < end+2 {
		return Value{}, off, ErrIncomplete
	}

	return Value{Type: TypeBulkString, Data: buf[next:end:end]}, end + 2, nil
}

func (p Parser) parseArray(buf []byte, off, depth int) (Value, int, error) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if depth > maxDepth {
		return Value{}, off, syntaxErrorf(off, "array nesting exceeds depth %d", maxDepth)
	}

	line, next, err := readLine(buf, off+1)
	if err != nil {
		return Value{}, off, err
	}

	count, err := parseLength(line, off+1)
	if err != nil {
		return Value{}, off, err
	}
	if count == -1 {
		return NullArray(), next, nil
	}

	maxLen := p.MaxArrayLen
	if maxLen <= 0 {
		maxLen = DefaultMaxArrayLen
	}
	if count > maxLen {
		return Value{}, off, syntaxErrorf(off+1, "array length %d exceeds limit %d", count, maxLen)
	}

	items := make([]Value, 0, min(int(count), preallocLimit))
	for i := int64(0); i < count; i++ {
		item, n, err := p.parseValue(buf, next, depth+1)
		if err != nil {
			return Value{}, off, err
		}
		items = append(items, item)
		next = n
	}

	return Value{Type: TypeArray, Array: items}, next, nil
}

// readLine returns the bytes between off and the next CRLF, and the offset
// just past it. A bare CR or LF inside the line is a syntax error.
func readLine(buf []byte, off int) ([]byte, int, error) {
	for i := off; i < len(buf); i++ {
		switch buf[i] {
		case '\n':
			return nil, off, syntaxErrorf(i, "unexpected LF without CR")
		case '\r':
			if i+1 >= len(buf) {
				return nil, off, ErrIncomplete
			}
			if buf[i+1] != '\n' {
				return nil, off, syntaxErrorf(i, "CR not followed by LF")
			}
			return buf[off:i:i], i + 2, nil
		}
		if i-off >= maxLineLen {
			return nil, off, syntaxErrorf(off, "line exceeds %d bytes", maxLineLen)
		}
	}
	return nil, off, ErrIncomplete
}

// parseLength parses a bulk string length or array count. Only plain
// decimal digits are accepted, plus the exact string "-1" for null.
func parseLength(b []byte, off int) (int64, error) {
	if len(b) == 2 && b[0] == '-' && b[1] == '1' {
		return -1, nil
	}
	if len(b) == 0 {
		return 0, syntaxErrorf(off, "empty length")
	}
	if b[0] == '-' {
		return 0, syntaxErrorf(off, "negative length %q", b)
	}

	var n int64
	for i, c := range b {
		if c < '0' || c > '9' {
			return 0, syntaxErrorf(off+i, "invalid length %q", b)
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, syntaxErrorf(off, "length %q overflows", b)
		}
		n = n*10 + d
	}
	return n, nil
}

// parseInt64 parses an int64 from a byte slice without allocation
func parseInt64(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}

	neg := b[0] == '-'
	if neg {
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}

	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (limit-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}

	if neg {
		return int64(-n), true
	}
	return int64(n), true
}
