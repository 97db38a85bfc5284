package protocol_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/raniellyferreira/memkv/protocol"
)

const pipelined = "*2\r\n$3\r\nGET\r\n$1\r\na\r\n*2\r\n$3\r\nGET\r\n$1\r\nb\r\n"

// drain returns the string form of every complete value in r
func drain(t *testing.T, r *protocol.Reader) []string {
	t.Helper()
	var out []string
	for {
		v, err := r.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, v.String())
	}
}

func TestReaderPipelined(t *testing.T) {
	r := protocol.NewReader()
	r.Feed([]byte(pipelined))

	got := drain(t, r)
	want := []string{"[GET, a]", "[GET, b]"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("values = %v, want %v", got, want)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestReaderChunkSizes(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5, 7, 16, len(pipelined)} {
		r := protocol.NewReader()
		var got []string
		for i := 0; i < len(pipelined); i += size {
			end := min(i+size, len(pipelined))
			r.Feed([]byte(pipelined[i:end]))
			got = append(got, drain(t, r)...)
		}
		if strings.Join(got, "|") != "[GET, a]|[GET, b]" {
			t.Errorf("chunk size %d: values = %v", size, got)
		}
	}
}

func TestReaderKeepsPartialTail(t *testing.T) {
	r := protocol.NewReader()
	r.Feed([]byte("+one\r\n+tw"))

	got := drain(t, r)
	if len(got) != 1 || got[0] != "one" {
		t.Fatalf("values = %v", got)
	}
	if r.Buffered() != len("+tw") {
		t.Fatalf("Buffered() = %d, want 3", r.Buffered())
	}

	r.Feed([]byte("o\r\n"))
	got = drain(t, r)
	if len(got) != 1 || got[0] != "two" {
		t.Fatalf("values = %v", got)
	}
}

func TestReaderSyntaxErrorIsSticky(t *testing.T) {
	r := protocol.NewReader()
	r.Feed([]byte("+ok\r\n$3\r\nab\r\n"))

	if v, err := r.Next(); err != nil || v.String() != "ok" {
		t.Fatalf("Next() = %v, %v", v, err)
	}

	_, err := r.Next()
	var se *protocol.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("Next() error = %v, want *SyntaxError", err)
	}
	if se.Offset != len("+ok\r\n$3\r\nab\r") {
		t.Errorf("Offset = %d, want position in stream", se.Offset)
	}

	r.Feed([]byte("+more\r\n"))
	if _, err := r.Next(); !errors.Is(err, protocol.ErrSyntax) {
		t.Fatalf("after syntax error Next() = %v, want sticky syntax error", err)
	}

	r.Reset()
	r.Feed([]byte("+fresh\r\n"))
	if v, err := r.Next(); err != nil || v.String() != "fresh" {
		t.Fatalf("after Reset Next() = %v, %v", v, err)
	}
}

func TestReaderReadFrom(t *testing.T) {
	src := iotest.OneByteReader(strings.NewReader(pipelined))
	r := protocol.NewReader()

	var got []string
	for {
		_, err := r.ReadFrom(src)
		got = append(got, drain(t, r)...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrom() error = %v", err)
		}
	}

	if strings.Join(got, "|") != "[GET, a]|[GET, b]" {
		t.Fatalf("values = %v", got)
	}
}

func TestReaderLargeBulkGrowsBuffer(t *testing.T) {
	payload := strings.Repeat("x", 100_000)
	input := "$100000\r\n" + payload + "\r\n"

	r := protocol.NewReader()
	src := strings.NewReader(input)
	for {
		_, err := r.ReadFrom(src)
		v, perr := r.Next()
		if perr == nil {
			if string(v.Data) != payload {
				t.Fatalf("payload mismatch, got %d bytes", len(v.Data))
			}
			return
		}
		if !errors.Is(perr, protocol.ErrIncomplete) {
			t.Fatalf("Next() error = %v", perr)
		}
		if err != nil {
			t.Fatalf("ReadFrom() error = %v before value completed", err)
		}
	}
}
