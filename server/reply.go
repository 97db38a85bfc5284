package server

import (
	"errors"

	"github.com/raniellyferreira/memkv/protocol"
	"github.com/raniellyferreira/memkv/storage"
)

// ProtocolErrorMessage is the reply sent before closing a connection whose
// byte stream could not be parsed.
const ProtocolErrorMessage = "ERR protocol error"

// RateLimitMessage is the reply sent before closing a connection whose
// limiter can never admit another command.
const RateLimitMessage = "ERR rate limit exceeded"

var okReply = protocol.SimpleString("OK")

// Execute applies cmd to store and returns the reply value. It holds no
// store lock after returning.
func Execute(store storage.Storage, cmd protocol.Command) protocol.Value {
	switch cmd.Kind {
	case protocol.CommandSet:
		store.Set(string(cmd.Key), cmd.Value)
		return okReply
	case protocol.CommandGet:
		if value, ok := store.Get(string(cmd.Key)); ok {
			return protocol.BulkString(value)
		}
		return protocol.NullBulkString()
	case protocol.CommandDel:
		if store.Del(string(cmd.Key)) {
			return protocol.Integer(1)
		}
		return protocol.Integer(0)
	default:
		return protocol.ErrorValue(protocol.ErrUnknownCommand.Message())
	}
}

// errorReply maps a codec or command error to the reply sent to the client
// and reports whether the connection must be closed afterwards.
func errorReply(err error) (reply protocol.Value, fatal bool) {
	var cerr *protocol.CommandError
	if errors.As(err, &cerr) {
		return protocol.ErrorValue(cerr.Kind.Message()), false
	}
	return protocol.ErrorValue(ProtocolErrorMessage), true
}
