package resp

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{
			name:  "status",
			input: "+OK\r\n",
			want:  Status("OK"),
		},
		{
			name:  "status pong",
			input: "+PONG\r\n",
			want:  Status("PONG"),
		},
		{
			name:  "error",
			input: "-ERR unknown command\r\n",
			want:  Error("ERR unknown command"),
		},
		{
			name:  "integer",
			input: ":1000\r\n",
			want:  Integer(1000),
		},
		{
			name:  "negative integer",
			input: ":-42\r\n",
			want:  Integer(-42),
		},
		{
			name:  "bulk string",
			input: "$6\r\nfoobar\r\n",
			want:  Bulk("foobar"),
		},
		{
			name:  "empty bulk string",
			input: "$0\r\n\r\n",
			want:  Bulk(""),
		},
		{
			name:  "null bulk string",
			input: "$-1\r\n",
			want:  NullBulk(),
		},
		{
			name:  "bulk string with embedded CRLF",
			input: "$8\r\nfoo\r\nbar\r\n",
			want:  Bulk("foo\r\nbar"),
		},
		{
			name:  "empty array",
			input: "*0\r\n",
			want:  Value{Type: TypeArray, Elems: []Value{}},
		},
		{
			name:  "null array",
			input: "*-1\r\n",
			want:  NullArray(),
		},
		{
			name:  "array of bulk strings",
			input: "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
			want:  Array(Bulk("foo"), Bulk("bar")),
		},
		{
			name:  "mixed array",
			input: "*3\r\n:1\r\n+OK\r\n$-1\r\n",
			want:  Array(Integer(1), Status("OK"), NullBulk()),
		},
		{
			name:  "nested array",
			input: "*2\r\n*2\r\n:1\r\n:2\r\n$3\r\nfoo\r\n",
			want:  Array(Array(Integer(1), Integer(2)), Bulk("foo")),
		},
		{
			name:  "subscribe push frame",
			input: "*3\r\n$9\r\nsubscribe\r\n$2\r\nch\r\n:1\r\n",
			want:  Array(Bulk("subscribe"), Bulk("ch"), Integer(1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != len(tt.input) {
				t.Errorf("Decode() consumed %d bytes, want %d", n, len(tt.input))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Null bulk strings and empty bulk strings are different replies and must
// not be conflated.
func TestDecodeNullVersusEmpty(t *testing.T) {
	null, _, err := Decode([]byte("$-1\r\n"))
	if err != nil {
		t.Fatalf("Decode($-1) error = %v", err)
	}
	empty, _, err := Decode([]byte("$0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Decode($0) error = %v", err)
	}

	if !null.IsNull() {
		t.Error("null bulk string should report IsNull()")
	}
	if empty.IsNull() {
		t.Error("empty bulk string should not report IsNull()")
	}
	if null.Text() != "" || empty.Text() != "" {
		t.Error("both null and empty bulk strings should have empty text")
	}

	nullArr, _, err := Decode([]byte("*-1\r\n"))
	if err != nil {
		t.Fatalf("Decode(*-1) error = %v", err)
	}
	emptyArr, _, err := Decode([]byte("*0\r\n"))
	if err != nil {
		t.Fatalf("Decode(*0) error = %v", err)
	}
	if !nullArr.IsNull() || emptyArr.IsNull() {
		t.Error("null array must be distinct from empty array")
	}
}

// Feeding a frame one byte at a time must yield ErrIncomplete until the
// final byte arrives, and then the identical value as decoding it whole.
func TestDecodePartialBuffers(t *testing.T) {
	frames := []string{
		"+OK\r\n",
		":12345\r\n",
		"$6\r\nfoobar\r\n",
		"$-1\r\n",
		"*-1\r\n",
		"*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
		"*3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$5\r\nhello\r\n",
		"*2\r\n*2\r\n:1\r\n:2\r\n$3\r\nfoo\r\n",
	}

	for _, frame := range frames {
		whole, n, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", frame, err)
		}
		if n != len(frame) {
			t.Fatalf("Decode(%q) consumed %d bytes, want %d", frame, n, len(frame))
		}

		for cut := 0; cut < len(frame); cut++ {
			_, consumed, err := Decode([]byte(frame[:cut]))
			if !errors.Is(err, ErrIncomplete) {
				t.Errorf("Decode(%q[:%d]) error = %v, want ErrIncomplete", frame, cut, err)
			}
			if consumed != 0 {
				t.Errorf("Decode(%q[:%d]) consumed %d bytes on incomplete frame", frame, cut, consumed)
			}
		}

		got, _, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode(%q) after partials error = %v", frame, err)
		}
		if !reflect.DeepEqual(got, whole) {
			t.Errorf("partial-then-whole decode of %q = %+v, want %+v", frame, got, whole)
		}
	}
}

// Decode must only consume the first frame when several are concatenated,
// which is what lets the read loop drain a pipelined burst.
func TestDecodeConsumesSingleFrame(t *testing.T) {
	input := []byte("+OK\r\n:2\r\n$3\r\nfoo\r\n")

	first, n, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(first, Status("OK")) {
		t.Errorf("first frame = %+v, want +OK", first)
	}

	second, m, err := Decode(input[n:])
	if err != nil {
		t.Fatalf("Decode() second frame error = %v", err)
	}
	if !reflect.DeepEqual(second, Integer(2)) {
		t.Errorf("second frame = %+v, want :2", second)
	}

	third, _, err := Decode(input[n+m:])
	if err != nil {
		t.Fatalf("Decode() third frame error = %v", err)
	}
	if !reflect.DeepEqual(third, Bulk("foo")) {
		t.Errorf("third frame = %+v, want $foo", third)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "unknown prefix",
			input:   "?5\r\n",
			wantErr: ErrInvalidType,
		},
		{
			name:    "bare LF line ending",
			input:   "+OK\n",
			wantErr: ErrCRLFExpected,
		},
		{
			name:    "missing bulk trailer",
			input:   "$3\r\nfooXY",
			wantErr: ErrCRLFExpected,
		},
		{
			name:    "non-numeric integer",
			input:   ":abc\r\n",
			wantErr: ErrInvalidSyntax,
		},
		{
			name:    "non-numeric bulk length",
			input:   "$x\r\n",
			wantErr: ErrInvalidSyntax,
		},
		{
			name:    "negative bulk length other than -1",
			input:   "$-2\r\n",
			wantErr: ErrInvalidLength,
		},
		{
			name:    "negative array length other than -1",
			input:   "*-2\r\n",
			wantErr: ErrInvalidLength,
		},
		{
			name:    "oversized bulk length",
			input:   "$1073741824\r\n",
			wantErr: ErrBulkTooLarge,
		},
		{
			name:    "empty header line",
			input:   "\r\n",
			wantErr: ErrInvalidSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if n != 0 {
				t.Errorf("Decode(%q) consumed %d bytes on error", tt.input, n)
			}
		})
	}
}

func BenchmarkDecodeBulk(b *testing.B) {
	frame := []byte("$64\r\n0123456789012345678901234567890123456789012345678901234567890123\r\n")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Decode(frame); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeArray(b *testing.B) {
	frame, _ := AppendCommand(nil, "MSET", "k1", "v1", "k2", "v2", "k3", "v3")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Decode(frame); err != nil {
			b.Fatal(err)
		}
	}
}
