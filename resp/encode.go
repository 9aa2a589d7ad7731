package resp

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupportedArg reports a command argument that has no scalar string
// representation on the wire.
var ErrUnsupportedArg = errors.New("resp: unsupported argument type")

// AppendCommand appends the wire encoding of a command to dst and returns
// the extended buffer. Requests are always multi-bulk arrays of bulk
// strings: the command name followed by each argument coerced to its
// string form. Arguments may be strings, byte slices, integers of any
// width, floats, or bools (encoded as 1/0); anything else fails with
// ErrUnsupportedArg before a single byte is written to dst.
func AppendCommand(dst []byte, cmd string, args ...interface{}) ([]byte, error) {
	// Coercion failures must leave dst untouched, so probe first.
	for _, arg := range args {
		if !encodable(arg) {
			return dst, fmt.Errorf("%w: %T", ErrUnsupportedArg, arg)
		}
	}

	dst = appendArrayHeader(dst, len(args)+1)
	dst = appendBulkString(dst, cmd)
	for _, arg := range args {
		dst = appendArg(dst, arg)
	}
	return dst, nil
}

// AppendValue appends the wire encoding of an arbitrary reply value to
// dst. The client never needs this, but servers and test fixtures do.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeStatus, TypeError:
		dst = append(dst, byte(v.Type))
		dst = append(dst, v.Str...)
		return append(dst, crlf...)
	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, crlf...)
	case TypeBulk:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		return appendBulkBytes(dst, v.Str)
	case TypeArray:
		if v.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = appendArrayHeader(dst, len(v.Elems))
		for _, e := range v.Elems {
			dst = AppendValue(dst, e)
		}
		return dst
	default:
		return dst
	}
}

func appendArrayHeader(dst []byte, n int) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, crlf...)
}

func appendBulkString(dst []byte, s string) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, s...)
	return append(dst, crlf...)
}

func appendBulkBytes(dst, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, b...)
	return append(dst, crlf...)
}

func encodable(arg interface{}) bool {
	switch arg.(type) {
	case string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool:
		return true
	default:
		return false
	}
}

func appendArg(dst []byte, arg interface{}) []byte {
	switch a := arg.(type) {
	case string:
		return appendBulkString(dst, a)
	case []byte:
		return appendBulkBytes(dst, a)
	case int:
		return appendBulkInt(dst, int64(a))
	case int8:
		return appendBulkInt(dst, int64(a))
	case int16:
		return appendBulkInt(dst, int64(a))
	case int32:
		return appendBulkInt(dst, int64(a))
	case int64:
		return appendBulkInt(dst, a)
	case uint:
		return appendBulkUint(dst, uint64(a))
	case uint8:
		return appendBulkUint(dst, uint64(a))
	case uint16:
		return appendBulkUint(dst, uint64(a))
	case uint32:
		return appendBulkUint(dst, uint64(a))
	case uint64:
		return appendBulkUint(dst, a)
	case float32:
		return appendBulkFloat(dst, float64(a))
	case float64:
		return appendBulkFloat(dst, a)
	case bool:
		if a {
			return appendBulkString(dst, "1")
		}
		return appendBulkString(dst, "0")
	default:
		// Unreachable: encodable() filtered the argument list already.
		return dst
	}
}

func appendBulkInt(dst []byte, i int64) []byte {
	return appendBulkString(dst, strconv.FormatInt(i, 10))
}

func appendBulkUint(dst []byte, u uint64) []byte {
	return appendBulkString(dst, strconv.FormatUint(u, 10))
}

func appendBulkFloat(dst []byte, f float64) []byte {
	return appendBulkString(dst, strconv.FormatFloat(f, 'f', -1, 64))
}
