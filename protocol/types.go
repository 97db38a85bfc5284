package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of a RESP value
type ValueType byte

const (
	// RESP value types
	TypeSimpleString ValueType = '+'
	TypeError        ValueType = '-'
	TypeInteger      ValueType = ':'
	TypeBulkString   ValueType = '$'
	TypeArray        ValueType = '*'
)

// String returns the RESP type name
func (t ValueType) String() string {
	switch t {
	case TypeSimpleString:
		return "simple-string"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk-string"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Value represents a parsed RESP value.
//
// Data holds the text of simple strings and errors and the payload of bulk
// strings. IsNull distinguishes the null bulk string and null array from
// their empty counterparts.
type Value struct {
	Type    ValueType
	Data    []byte
	Integer int64
	Array   []Value
	IsNull  bool
}

// SimpleString returns a simple string value
func SimpleString(s string) Value {
	return Value{Type: TypeSimpleString, Data: []byte(s)}
}

// ErrorValue returns an error value carrying msg
func ErrorValue(msg string) Value {
	return Value{Type: TypeError, Data: []byte(msg)}
}

// Integer returns an integer value
func Integer(n int64) Value {
	return Value{Type: TypeInteger, Integer: n}
}

// BulkString returns a bulk string value. A nil slice still encodes as an
// empty bulk string; use NullBulkString for the null sentinel.
func BulkString(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{Type: TypeBulkString, Data: b}
}

// NullBulkString returns the null bulk string ($-1)
func NullBulkString() Value {
	return Value{Type: TypeBulkString, IsNull: true}
}

// Array returns an array value
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, Array: items}
}

// NullArray returns the null array (*-1)
func NullArray() Value {
	return Value{Type: TypeArray, IsNull: true}
}

// String returns a string representation of the value
func (v Value) String() string {
	switch v.Type {
	case TypeSimpleString, TypeError:
		return string(v.Data)
	case TypeInteger:
		return strconv.FormatInt(v.Integer, 10)
	case TypeBulkString:
		if v.IsNull {
			return "(nil)"
		}
		return string(v.Data)
	case TypeArray:
		if v.IsNull {
			return "(nil)"
		}
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("unknown type %c", v.Type)
	}
}

// Bytes returns the byte representation of the value
func (v Value) Bytes() []byte {
	return v.Data
}

// IsError returns true if this is an error value
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// IsString reports whether v is a non-null simple or bulk string
func (v Value) IsString() bool {
	switch v.Type {
	case TypeSimpleString:
		return true
	case TypeBulkString:
		return !v.IsNull
	}
	return false
}

// Error returns the error message if this is an error value
func (v Value) Error() string {
	if v.Type == TypeError {
		return string(v.Data)
	}
	return ""
}

// Validate checks the data model invariants: simple string and error text
// without CR or LF, and a known type tag.
func (v Value) Validate() error {
	switch v.Type {
	case TypeSimpleString, TypeError:
		if bytes.ContainsAny(v.Data, "\r\n") {
			return fmt.Errorf("%w: %s text contains CR or LF", ErrInvalidValue, v.Type)
		}
	case TypeInteger, TypeBulkString:
	case TypeArray:
		for i := range v.Array {
			if err := v.Array[i].Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unsupported value type: %c", ErrInvalidValue, v.Type)
	}
	return nil
}

// Clone returns a deep copy of v that no longer aliases the buffer it was
// parsed from.
func (v Value) Clone() Value {
	out := v
	if v.Data != nil {
		out.Data = append([]byte{}, v.Data...)
	}
	if v.Array != nil {
		out.Array = make([]Value, len(v.Array))
		for i := range v.Array {
			out.Array[i] = v.Array[i].Clone()
		}
	}
	return out
}

// Equal reports whether two values are structurally identical. Empty and
// null are never equal.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.IsNull != o.IsNull {
		return false
	}
	switch v.Type {
	case TypeInteger:
		return v.Integer == o.Integer
	case TypeArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.Data, o.Data)
	}
}
