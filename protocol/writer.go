package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// AppendValue appends the RESP encoding of v to dst
func AppendValue(dst []byte, v Value) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return dst, err
	}
	return appendValue(dst, v), nil
}

// Marshal returns the RESP encoding of v
func Marshal(v Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// appendValue encodes an already validated value
func appendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeSimpleString, TypeError:
		dst = append(dst, byte(v.Type))
		dst = append(dst, v.Data...)
		return append(dst, CRLF...)
	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Integer, 10)
		return append(dst, CRLF...)
	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Data)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, v.Data...)
		return append(dst, CRLF...)
	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, CRLF...)
		for i := range v.Array {
			dst = appendValue(dst, v.Array[i])
		}
		return dst
	}
	return dst
}

// Writer provides efficient writing of RESP protocol messages
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter creates a new RESP protocol writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:      bufio.NewWriter(w),
		scratch: make([]byte, 0, 64),
	}
}

// WriteValue writes a RESP value to the output stream
func (w *Writer) WriteValue(v Value) error {
	if err := v.Validate(); err != nil {
		return err
	}
	switch v.Type {
	case TypeSimpleString:
		return w.WriteSimpleString(string(v.Data))
	case TypeError:
		return w.WriteError(string(v.Data))
	case TypeInteger:
		return w.WriteInteger(v.Integer)
	case TypeBulkString:
		if v.IsNull {
			return w.WriteNullBulkString()
		}
		return w.WriteBulkString(v.Data)
	case TypeArray:
		if v.IsNull {
			return w.WriteNullArray()
		}
		return w.WriteArray(v.Array)
	default:
		return fmt.Errorf("%w: unsupported value type: %c", ErrInvalidValue, v.Type)
	}
}

// WriteSimpleString writes a simple string
func (w *Writer) WriteSimpleString(s string) error {
	return w.writeLine('+', s)
}

// WriteError writes an error message
func (w *Writer) WriteError(msg string) error {
	return w.writeLine('-', msg)
}

// WriteInteger writes an integer
func (w *Writer) WriteInteger(n int64) error {
	w.scratch = append(w.scratch[:0], ':')
	w.scratch = strconv.AppendInt(w.scratch, n, 10)
	w.scratch = append(w.scratch, CRLF...)
	_, err := w.bw.Write(w.scratch)
	return err
}

// WriteBulkString writes a bulk string
func (w *Writer) WriteBulkString(data []byte) error {
	if err := w.writeHeader('$', len(data)); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteBulkStringFromString writes a bulk string from a string
func (w *Writer) WriteBulkStringFromString(s string) error {
	if err := w.writeHeader('$', len(s)); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(s); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteNullBulkString writes a null bulk string
func (w *Writer) WriteNullBulkString() error {
	_, err := w.bw.WriteString("$-1\r\n")
	return err
}

// WriteArray writes an array of values
func (w *Writer) WriteArray(values []Value) error {
	if err := w.writeHeader('*', len(values)); err != nil {
		return err
	}
	for _, value := range values {
		if err := w.WriteValue(value); err != nil {
			return err
		}
	}
	return nil
}

// WriteNullArray writes a null array
func (w *Writer) WriteNullArray() error {
	_, err := w.bw.WriteString("*-1\r\n")
	return err
}

// WriteCommand writes a Redis command as a RESP array of bulk strings
func (w *Writer) WriteCommand(cmd string, args ...string) error {
	if err := w.writeHeader('*', 1+len(args)); err != nil {
		return err
	}
	if err := w.WriteBulkStringFromString(cmd); err != nil {
		return err
	}
	for _, arg := range args {
		if err := w.WriteBulkStringFromString(arg); err != nil {
			return err
		}
	}
	return nil
}

// WriteOK writes a simple "OK" response
func (w *Writer) WriteOK() error {
	return w.WriteSimpleString("OK")
}

// Flush flushes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Buffered returns the number of bytes waiting to be flushed
func (w *Writer) Buffered() int {
	return w.bw.Buffered()
}

func (w *Writer) writeLine(tag byte, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' {
			return fmt.Errorf("%w: %s text contains CR or LF", ErrInvalidValue, ValueType(tag))
		}
	}
	if err := w.bw.WriteByte(tag); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(s); err != nil {
		return err
	}
	return w.writeCRLF()
}

func (w *Writer) writeHeader(tag byte, n int) error {
	w.scratch = append(w.scratch[:0], tag)
	w.scratch = strconv.AppendInt(w.scratch, int64(n), 10)
	w.scratch = append(w.scratch, CRLF...)
	_, err := w.bw.Write(w.scratch)
	return err
}

// writeCRLF writes the CRLF terminator
func (w *Writer) writeCRLF() error {
	_, err := w.bw.WriteString(CRLF)
	return err
}
