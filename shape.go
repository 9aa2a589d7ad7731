package redwing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/birbparty/redwing/resp"
)

// shapeFunc converts a raw reply into the command's result type. Shapers
// run on the read loop right after decoding, while the reply may still
// alias the read buffer, so they must copy anything they retain. A shaper
// error fails only its own command; the connection stays healthy.
type shapeFunc[T any] func(resp.Value) (T, error)

// replyError reports a well-formed reply whose shape does not match what
// the command expects.
func replyError(want string, v resp.Value) error {
	return NewError(ErrorTypeReply, fmt.Sprintf("unexpected %s reply, want %s", v.Type, want), nil)
}

func shapeStatus(v resp.Value) (string, error) {
	switch v.Type {
	case resp.TypeStatus, resp.TypeBulk:
		return v.Text(), nil
	default:
		return "", replyError("status", v)
	}
}

// shapeString reads a bulk reply. A null bulk string means the key does
// not exist and surfaces as ErrNil.
func shapeString(v resp.Value) (string, error) {
	switch v.Type {
	case resp.TypeBulk:
		if v.Null {
			return "", ErrNil
		}
		return v.Text(), nil
	case resp.TypeStatus:
		return v.Text(), nil
	default:
		return "", replyError("bulk string", v)
	}
}

func shapeInt(v resp.Value) (int64, error) {
	if v.Type != resp.TypeInteger {
		return 0, replyError("integer", v)
	}
	return v.Int, nil
}

func shapeBool(v resp.Value) (bool, error) {
	if v.Type != resp.TypeInteger {
		return false, replyError("integer", v)
	}
	return v.Int != 0, nil
}

// shapeIntOrNil reads an integer reply where a null bulk string means the
// target is absent, the way ZRANK answers for a missing member.
func shapeIntOrNil(v resp.Value) (int64, error) {
	if v.Type == resp.TypeBulk && v.Null {
		return 0, ErrNil
	}
	return shapeInt(v)
}

func shapeFloat(v resp.Value) (float64, error) {
	switch v.Type {
	case resp.TypeBulk:
		if v.Null {
			return 0, ErrNil
		}
		f, err := strconv.ParseFloat(v.Text(), 64)
		if err != nil {
			return 0, NewError(ErrorTypeReply, fmt.Sprintf("malformed float reply %q", v.Text()), err)
		}
		return f, nil
	case resp.TypeInteger:
		return float64(v.Int), nil
	default:
		return 0, replyError("bulk string", v)
	}
}

// shapeStrings reads an array of bulk strings. A null array yields a nil
// slice without error; null elements read as empty strings.
func shapeStrings(v resp.Value) ([]string, error) {
	if v.Type != resp.TypeArray {
		return nil, replyError("array", v)
	}
	if v.Null {
		return nil, nil
	}
	out := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = e.Text()
	}
	return out, nil
}

// shapeNullableStrings reads an array of bulk strings where individual
// elements may be null, as in MGET against a mix of present and absent
// keys. Null elements come back as nil pointers.
func shapeNullableStrings(v resp.Value) ([]*string, error) {
	if v.Type != resp.TypeArray {
		return nil, replyError("array", v)
	}
	if v.Null {
		return nil, nil
	}
	out := make([]*string, len(v.Elems))
	for i, e := range v.Elems {
		if e.Null {
			continue
		}
		s := e.Text()
		out[i] = &s
	}
	return out, nil
}

// shapeStringMap reads a flat array of alternating field and value into a
// map, the layout HGETALL and CONFIG GET use.
func shapeStringMap(v resp.Value) (map[string]string, error) {
	if v.Type != resp.TypeArray {
		return nil, replyError("array", v)
	}
	if v.Null {
		return nil, nil
	}
	if len(v.Elems)%2 != 0 {
		return nil, NewError(ErrorTypeReply, fmt.Sprintf("field-value array has odd length %d", len(v.Elems)), nil)
	}
	out := make(map[string]string, len(v.Elems)/2)
	for i := 0; i < len(v.Elems); i += 2 {
		out[v.Elems[i].Text()] = v.Elems[i+1].Text()
	}
	return out, nil
}

// shapeZMembers reads a flat array of alternating member and score, the
// layout of WITHSCORES range replies.
func shapeZMembers(v resp.Value) ([]ZMember, error) {
	if v.Type != resp.TypeArray {
		return nil, replyError("array", v)
	}
	if v.Null {
		return nil, nil
	}
	if len(v.Elems)%2 != 0 {
		return nil, NewError(ErrorTypeReply, fmt.Sprintf("member-score array has odd length %d", len(v.Elems)), nil)
	}
	out := make([]ZMember, 0, len(v.Elems)/2)
	for i := 0; i < len(v.Elems); i += 2 {
		score, err := strconv.ParseFloat(v.Elems[i+1].Text(), 64)
		if err != nil {
			return nil, NewError(ErrorTypeReply, fmt.Sprintf("malformed score %q", v.Elems[i+1].Text()), err)
		}
		out = append(out, ZMember{Member: v.Elems[i].Text(), Score: score})
	}
	return out, nil
}

// shapeKeyValue reads the two-element [key, value] array that blocking
// pops return. A null array means the timeout expired with no data, which
// is a nil result rather than an error.
func shapeKeyValue(v resp.Value) (*KeyValue, error) {
	if v.Type != resp.TypeArray {
		return nil, replyError("array", v)
	}
	if v.Null {
		return nil, nil
	}
	if len(v.Elems) != 2 {
		return nil, NewError(ErrorTypeReply, fmt.Sprintf("key-value array has %d elements, want 2", len(v.Elems)), nil)
	}
	return &KeyValue{Key: v.Elems[0].Text(), Value: v.Elems[1].Text()}, nil
}

// shapeValue passes the reply through untouched, for Do. The copy detaches
// it from the read buffer so callers may keep it.
func shapeValue(v resp.Value) (resp.Value, error) {
	return v.Copy(), nil
}

// shapeInfo parses the INFO text: "key:value" lines with "#" section
// headers and blank lines in between.
func shapeInfo(v resp.Value) (map[string]string, error) {
	if v.Type != resp.TypeBulk {
		return nil, replyError("bulk string", v)
	}
	out := make(map[string]string)
	for _, line := range strings.Split(v.Text(), "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, val, ok := strings.Cut(line, ":"); ok {
			out[key] = val
		}
	}
	return out, nil
}
