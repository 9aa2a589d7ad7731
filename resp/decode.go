package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIncomplete reports that the buffer holds only part of a frame.
	// Callers should read more bytes and decode again; nothing was consumed.
	ErrIncomplete = errors.New("resp: incomplete frame")

	ErrInvalidSyntax = errors.New("resp: invalid syntax")
	ErrInvalidType   = errors.New("resp: invalid type prefix")
	ErrInvalidLength = errors.New("resp: invalid length")
	ErrCRLFExpected  = errors.New("resp: CRLF expected")
	ErrBulkTooLarge  = errors.New("resp: bulk string too large")
)

const (
	maxBulkLen  = 512 * 1024 * 1024 // server-side limit, mirrored here
	maxArrayLen = 1024 * 1024
)

var crlf = []byte("\r\n")

// Decode parses exactly one complete reply from the front of buf and
// returns it together with the number of bytes consumed. When buf holds a
// partial frame, Decode returns ErrIncomplete and consumes nothing, so it
// can be retried on the same buffer once more bytes have arrived. Any
// other error means the byte stream is corrupt and cannot be re-synced.
func Decode(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return Value{}, 0, ErrIncomplete
	}

	line, n, err := readLine(buf)
	if err != nil {
		return Value{}, 0, err
	}
	if len(line) == 0 {
		return Value{}, 0, fmt.Errorf("%w: empty header line", ErrInvalidSyntax)
	}

	typ, rest := Type(line[0]), line[1:]
	switch typ {
	case TypeStatus, TypeError:
		return Value{Type: typ, Str: rest}, n, nil

	case TypeInteger:
		i, err := parseInt(rest)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: TypeInteger, Int: i}, n, nil

	case TypeBulk:
		size, err := parseInt(rest)
		if err != nil {
			return Value{}, 0, err
		}
		if size == -1 {
			return NullBulk(), n, nil
		}
		if size < 0 {
			return Value{}, 0, fmt.Errorf("%w: bulk length %d", ErrInvalidLength, size)
		}
		if size > maxBulkLen {
			return Value{}, 0, ErrBulkTooLarge
		}
		end := n + int(size)
		if len(buf) < end+2 {
			return Value{}, 0, ErrIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return Value{}, 0, ErrCRLFExpected
		}
		return Value{Type: TypeBulk, Str: buf[n:end]}, end + 2, nil

	case TypeArray:
		count, err := parseInt(rest)
		if err != nil {
			return Value{}, 0, err
		}
		if count == -1 {
			return NullArray(), n, nil
		}
		if count < 0 || count > maxArrayLen {
			return Value{}, 0, fmt.Errorf("%w: array length %d", ErrInvalidLength, count)
		}
		elems := make([]Value, 0, count)
		used := n
		for i := int64(0); i < count; i++ {
			elem, consumed, err := Decode(buf[used:])
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, elem)
			used += consumed
		}
		return Value{Type: TypeArray, Elems: elems}, used, nil

	default:
		return Value{}, 0, fmt.Errorf("%w: %q", ErrInvalidType, byte(typ))
	}
}

// readLine returns the first CRLF-terminated line of buf without its
// terminator, along with the number of bytes the full line occupies.
func readLine(buf []byte) ([]byte, int, error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, 0, ErrIncomplete
	}
	if i == 0 || buf[i-1] != '\r' {
		return nil, 0, ErrCRLFExpected
	}
	return buf[:i-1], i + 1, nil
}

func parseInt(b []byte) (int64, error) {
	i, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidSyntax, b)
	}
	return i, nil
}
