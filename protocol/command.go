package protocol

import (
	"strconv"
)

// CommandKind identifies one of the supported commands
type CommandKind uint8

const (
	CommandSet CommandKind = iota + 1
	CommandGet
	CommandDel
)

// Command names as they appear on the wire
const (
	NameSet = "SET"
	NameGet = "GET"
	NameDel = "DEL"
)

// String returns the wire name of the command
func (k CommandKind) String() string {
	switch k {
	case CommandSet:
		return NameSet
	case CommandGet:
		return NameGet
	case CommandDel:
		return NameDel
	default:
		return "UNKNOWN"
	}
}

// arity is the exact number of arguments following the command name
func (k CommandKind) arity() int {
	if k == CommandSet {
		return 2
	}
	return 1
}

// Command is a parsed SET, GET or DEL. Value is only set for CommandSet.
// Key and Value may alias the buffer the command was parsed from.
type Command struct {
	Kind  CommandKind
	Key   []byte
	Value []byte
}

// Name returns the wire name of the command
func (c Command) Name() string {
	return c.Kind.String()
}

// String returns a printable form of the command, quoting binary payloads
func (c Command) String() string {
	s := c.Kind.String() + " " + strconv.Quote(string(c.Key))
	if c.Kind == CommandSet {
		s += " " + strconv.Quote(string(c.Value))
	}
	return s
}

// Clone returns a command that owns copies of its payloads, for use after
// the read buffer it was parsed from has been reused.
func (c Command) Clone() Command {
	out := Command{Kind: c.Kind, Key: append([]byte{}, c.Key...)}
	if c.Value != nil {
		out.Value = append([]byte{}, c.Value...)
	}
	return out
}

func lookupCommand(name []byte) (CommandKind, bool) {
	// Matching is case-sensitive on purpose: "set" is not SET. Fold the name
	// here if case-insensitive commands are ever wanted.
	switch string(name) {
	case NameSet:
		return CommandSet, true
	case NameGet:
		return CommandGet, true
	case NameDel:
		return CommandDel, true
	}
	return 0, false
}

// ParseCommand translates a RESP array into a Command.
//
// The first element must be a simple or bulk string naming SET, GET or DEL,
// matched case-sensitively. Arity is strict: SET takes exactly a key and a
// value, GET and DEL exactly a key. Null or non-string arguments count as
// missing. The result borrows its byte payloads from v.
func ParseCommand(v Value) (Command, error) {
	if v.Type != TypeArray || v.IsNull || len(v.Array) == 0 || !v.Array[0].IsString() {
		return Command{}, &CommandError{Kind: ErrUnknownCommand}
	}

	name := v.Array[0].Data
	kind, ok := lookupCommand(name)
	if !ok {
		return Command{}, &CommandError{Kind: ErrUnknownCommand, Name: string(name)}
	}

	args := v.Array[1:]
	if err := checkArity(kind, len(args)); err != nil {
		return Command{}, err
	}

	payloads := make([][]byte, len(args))
	for i, arg := range args {
		if !arg.IsString() {
			return Command{}, &CommandError{Kind: ErrMissingArguments, Name: kind.String()}
		}
		payloads[i] = arg.Data
	}
	return build(kind, payloads), nil
}

// NewCommand builds a Command from a name and its arguments, applying the
// same rules as ParseCommand. A nil argument is treated as a null bulk
// string and rejected as missing.
func NewCommand(name string, args [][]byte) (Command, error) {
	kind, ok := lookupCommand([]byte(name))
	if !ok {
		return Command{}, &CommandError{Kind: ErrUnknownCommand, Name: name}
	}
	if err := checkArity(kind, len(args)); err != nil {
		return Command{}, err
	}
	for _, arg := range args {
		if arg == nil {
			return Command{}, &CommandError{Kind: ErrMissingArguments, Name: name}
		}
	}
	return build(kind, args), nil
}

func checkArity(kind CommandKind, n int) error {
	switch want := kind.arity(); {
	case n < want:
		return &CommandError{Kind: ErrMissingArguments, Name: kind.String()}
	case n > want:
		return &CommandError{Kind: ErrTooManyArguments, Name: kind.String()}
	}
	return nil
}

func build(kind CommandKind, args [][]byte) Command {
	cmd := Command{Kind: kind, Key: args[0]}
	if kind == CommandSet {
		cmd.Value = args[1]
	}
	return cmd
}
