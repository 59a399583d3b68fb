package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind enumerates the scalar shapes a cell may take.
type ValueKind uint8

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
)

// Value is a single cell: empty, a string or a number.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// StringValue wraps s. An empty string yields the empty Value.
func StringValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindString, str: s}
}

// NumberValue wraps n.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// ValueOf converts a decoded JSON value into a Value. Nested objects and
// arrays are kept as their compact JSON encoding.
func ValueOf(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case string:
		return StringValue(v)
	case float64:
		return NumberValue(v)
	case float32:
		return NumberValue(float64(v))
	case int:
		return NumberValue(float64(v))
	case int64:
		return intValue(v, strconv.FormatInt(v, 10))
	case json.Number:
		return numberValue(v)
	case bool:
		return StringValue(strconv.FormatBool(v))
	case map[string]any:
		if len(v) == 0 {
			return Value{}
		}
	case []any:
		if len(v) == 0 {
			return Value{}
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return Value{}
	}
	return StringValue(string(b))
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

func intValue(n int64, text string) Value {
	if n > maxExactInt || n < -maxExactInt {
		return StringValue(text)
	}
	return NumberValue(float64(n))
}

// numberValue keeps integers that a float64 cannot represent as their exact
// decimal text.
func numberValue(n json.Number) Value {
	text := n.String()
	if !strings.ContainsAny(text, ".eE") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return StringValue(text)
		}
		return intValue(i, text)
	}
	if f, err := n.Float64(); err == nil {
		return NumberValue(f)
	}
	return StringValue(text)
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Number returns the numeric payload and whether the value is a number.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// String renders the value the way it is written into a sheet cell.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Interface returns nil, a string or a float64.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	default:
		return nil
	}
}

// Row is an insertion-ordered mapping of field name to Value. It never holds
// empty values: setting one removes the key.
type Row struct {
	keys   []string
	values map[string]Value
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]Value)}
}

// Set stores v under key, or removes key when v is empty.
func (r *Row) Set(key string, v Value) {
	if v.IsEmpty() {
		r.Delete(key)
		return
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value for key.
func (r *Row) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Delete removes key if present.
func (r *Row) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Row) Len() int { return len(r.keys) }

// MarshalJSON keeps insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k].Interface())
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}
