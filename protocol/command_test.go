package protocol_test

import (
	"errors"
	"testing"

	"github.com/raniellyferreira/memkv/protocol"
)

func bulkArray(parts ...string) protocol.Value {
	items := make([]protocol.Value, len(parts))
	for i, p := range parts {
		items[i] = protocol.BulkString([]byte(p))
	}
	return protocol.Array(items...)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		value protocol.Value
		want  protocol.Command
	}{
		{
			name:  "set",
			value: bulkArray("SET", "mykey", "myvalue"),
			want:  protocol.Command{Kind: protocol.CommandSet, Key: []byte("mykey"), Value: []byte("myvalue")},
		},
		{
			name:  "get",
			value: bulkArray("GET", "mykey"),
			want:  protocol.Command{Kind: protocol.CommandGet, Key: []byte("mykey")},
		},
		{
			name:  "del",
			value: bulkArray("DEL", "mykey"),
			want:  protocol.Command{Kind: protocol.CommandDel, Key: []byte("mykey")},
		},
		{
			name:  "simple string name",
			value: protocol.Array(protocol.SimpleString("GET"), protocol.BulkString([]byte("k"))),
			want:  protocol.Command{Kind: protocol.CommandGet, Key: []byte("k")},
		},
		{
			name:  "binary key and empty value",
			value: bulkArray("SET", "\x00\xff\r\n", ""),
			want:  protocol.Command{Kind: protocol.CommandSet, Key: []byte("\x00\xff\r\n"), Value: []byte{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := protocol.ParseCommand(tt.value)
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if cmd.Kind != tt.want.Kind {
				t.Errorf("Kind = %v, want %v", cmd.Kind, tt.want.Kind)
			}
			if string(cmd.Key) != string(tt.want.Key) {
				t.Errorf("Key = %q, want %q", cmd.Key, tt.want.Key)
			}
			if string(cmd.Value) != string(tt.want.Value) {
				t.Errorf("Value = %q, want %q", cmd.Value, tt.want.Value)
			}
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		value protocol.Value
		kind  protocol.CommandErrorKind
	}{
		{"unknown name", bulkArray("FOO"), protocol.ErrUnknownCommand},
		{"lowercase is not matched", bulkArray("get", "k"), protocol.ErrUnknownCommand},
		{"mixed case is not matched", bulkArray("Set", "k", "v"), protocol.ErrUnknownCommand},
		{"empty array", protocol.Array(), protocol.ErrUnknownCommand},
		{"null array", protocol.NullArray(), protocol.ErrUnknownCommand},
		{"not an array", protocol.BulkString([]byte("GET")), protocol.ErrUnknownCommand},
		{"integer name", protocol.Array(protocol.Integer(1), protocol.BulkString([]byte("k"))), protocol.ErrUnknownCommand},
		{"null name", protocol.Array(protocol.NullBulkString()), protocol.ErrUnknownCommand},
		{"set without value", bulkArray("SET", "k"), protocol.ErrMissingArguments},
		{"set without args", bulkArray("SET"), protocol.ErrMissingArguments},
		{"get without key", bulkArray("GET"), protocol.ErrMissingArguments},
		{"del without key", bulkArray("DEL"), protocol.ErrMissingArguments},
		{"set extra arg", bulkArray("SET", "k", "v", "extra"), protocol.ErrTooManyArguments},
		{"get extra arg", bulkArray("GET", "a", "b"), protocol.ErrTooManyArguments},
		{"del extra arg", bulkArray("DEL", "a", "b"), protocol.ErrTooManyArguments},
		{
			"null key",
			protocol.Array(protocol.BulkString([]byte("GET")), protocol.NullBulkString()),
			protocol.ErrMissingArguments,
		},
		{
			"null value",
			protocol.Array(protocol.BulkString([]byte("SET")), protocol.BulkString([]byte("k")), protocol.NullBulkString()),
			protocol.ErrMissingArguments,
		},
		{
			"integer key",
			protocol.Array(protocol.BulkString([]byte("DEL")), protocol.Integer(3)),
			protocol.ErrMissingArguments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := protocol.ParseCommand(tt.value)
			var cerr *protocol.CommandError
			if !errors.As(err, &cerr) {
				t.Fatalf("ParseCommand() error = %v, want *CommandError", err)
			}
			if cerr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", cerr.Kind, tt.kind)
			}
		})
	}
}

func TestNewCommandArity(t *testing.T) {
	_, err := protocol.NewCommand("SET", [][]byte{[]byte("k")})
	if !errors.Is(err, &protocol.CommandError{Kind: protocol.ErrMissingArguments}) {
		t.Errorf("SET k: error = %v, want missing arguments", err)
	}

	_, err = protocol.NewCommand("SET", [][]byte{[]byte("k"), []byte("v"), []byte("extra")})
	if err == nil {
		t.Error("SET k v extra: expected strict arity error")
	}

	_, err = protocol.NewCommand("FOO", nil)
	if !errors.Is(err, &protocol.CommandError{Kind: protocol.ErrUnknownCommand}) {
		t.Errorf("FOO: error = %v, want unknown command", err)
	}

	_, err = protocol.NewCommand("GET", [][]byte{nil})
	if !errors.Is(err, &protocol.CommandError{Kind: protocol.ErrMissingArguments}) {
		t.Errorf("GET nil: error = %v, want missing arguments", err)
	}

	cmd, err := protocol.NewCommand("DEL", [][]byte{[]byte("k")})
	if err != nil || cmd.Kind != protocol.CommandDel || string(cmd.Key) != "k" {
		t.Errorf("DEL k = %v, %v", cmd, err)
	}
}

func TestCommandErrorMessages(t *testing.T) {
	tests := map[protocol.CommandErrorKind]string{
		protocol.ErrUnknownCommand:   "ERR unknown command",
		protocol.ErrMissingArguments: "ERR missing arguments",
		protocol.ErrTooManyArguments: "ERR too many arguments",
	}
	for kind, want := range tests {
		if got := kind.Message(); got != want {
			t.Errorf("%v.Message() = %q, want %q", kind, got, want)
		}
	}
}

func TestCommandCloneOwnsPayloads(t *testing.T) {
	input := []byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	v, _, err := protocol.Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := protocol.ParseCommand(v)
	if err != nil {
		t.Fatal(err)
	}

	owned := cmd.Clone()
	for i := range input {
		input[i] = 0
	}

	if string(owned.Key) != "k" || string(owned.Value) != "v" {
		t.Errorf("Clone() = %v, want independent copies", owned)
	}
	if string(cmd.Key) == "k" {
		t.Error("ParseCommand is expected to borrow from the parsed buffer")
	}
}
