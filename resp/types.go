// Package resp implements the RESP wire protocol used by Redis-compatible
// key-value servers: encoding of client commands as multi-bulk arrays and
// incremental decoding of the five reply types (status, error, integer,
// bulk string, array). The codec is pure: it never touches a socket, so
// Decode can be re-applied to a growing buffer as more bytes arrive.
package resp

import "strconv"

// Type identifies a RESP frame by its prefix byte.
type Type byte

const (
	TypeStatus  Type = '+'
	TypeError   Type = '-'
	TypeInteger Type = ':'
	TypeBulk    Type = '$'
	TypeArray   Type = '*'
)

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeStatus:
		return "status"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulk:
		return "bulk"
	case TypeArray:
		return "array"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value is a decoded RESP reply. It is a tagged union: Type selects which
// of the remaining fields carry the payload. Str holds the text of status,
// error, and bulk replies; Int holds integer replies; Elems holds array
// elements. Null is set for null bulk strings ($-1) and null arrays (*-1),
// which are distinct from empty ones.
//
// Values produced by Decode may alias the input buffer; copy Str before
// retaining it past the next buffer mutation.
type Value struct {
	Type  Type
	Str   []byte
	Int   int64
	Elems []Value
	Null  bool
}

// IsNull reports whether the value is a null bulk string or null array.
func (v Value) IsNull() bool {
	return v.Null
}

// Copy returns a deep copy of the value that shares no memory with the
// buffer it was decoded from. Use it to retain a value after the buffer
// is reused.
func (v Value) Copy() Value {
	out := v
	if v.Str != nil {
		out.Str = append([]byte(nil), v.Str...)
	}
	if v.Elems != nil {
		out.Elems = make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			out.Elems[i] = e.Copy()
		}
	}
	return out
}

// IsError reports whether the value is a server error reply.
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// Text returns the payload of a status, error, or bulk reply as a string.
// For other types it returns "".
func (v Value) Text() string {
	return string(v.Str)
}

// Status builds a status (simple string) value.
func Status(s string) Value {
	return Value{Type: TypeStatus, Str: []byte(s)}
}

// Error builds an error value.
func Error(msg string) Value {
	return Value{Type: TypeError, Str: []byte(msg)}
}

// Integer builds an integer value.
func Integer(i int64) Value {
	return Value{Type: TypeInteger, Int: i}
}

// Bulk builds a bulk string value.
func Bulk(s string) Value {
	return Value{Type: TypeBulk, Str: []byte(s)}
}

// BulkBytes builds a bulk string value from raw bytes. A nil slice builds
// a null bulk string.
func BulkBytes(b []byte) Value {
	if b == nil {
		return NullBulk()
	}
	return Value{Type: TypeBulk, Str: b}
}

// NullBulk builds a null bulk string ($-1).
func NullBulk() Value {
	return Value{Type: TypeBulk, Null: true}
}

// Array builds an array value from its elements.
func Array(elems ...Value) Value {
	return Value{Type: TypeArray, Elems: elems}
}

// NullArray builds a null array (*-1), which servers use to signal "no
// data" on timed-out blocking operations.
func NullArray() Value {
	return Value{Type: TypeArray, Null: true}
}
