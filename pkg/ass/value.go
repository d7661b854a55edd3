package ass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	NullValue ValueKind = iota
	BoolValue
	NumberValue
	StringValue
	ArrayValue
	ObjectValue
)

func (k ValueKind) String() string {
	switch k {
	case NullValue:
		return "null"
	case BoolValue:
		return "bool"
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	case ArrayValue:
		return "array"
	case ObjectValue:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is an untyped JSON tree. The zero Value is null.
// Accessors never fail; they report absence or a kind mismatch with ok == false.
type Value struct {
	kind ValueKind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

// DecodeValue decodes body into a Value. Numbers keep their textual form so
// large integer ids survive intact.
func DecodeValue(body []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(body); err != nil {
		return Value{}, err
	}
	return v, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return JSON(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return JSON(errors.New("unexpected data after top-level value"))
	}
	*v = fromAny(raw)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Value{}
	case bool:
		return Value{kind: BoolValue, b: t}
	case json.Number:
		return Value{kind: NumberValue, num: t}
	case string:
		return Value{kind: StringValue, str: t}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = fromAny(e)
		}
		return Value{kind: ArrayValue, arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = fromAny(e)
		}
		return Value{kind: ObjectValue, obj: obj}
	default:
		return Value{}
	}
}

// Interface converts v back to plain Go values (nil, bool, json.Number,
// string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case BoolValue:
		return v.b
	case NumberValue:
		return v.num
	case StringValue:
		return v.str
	case ArrayValue:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case ObjectValue:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == NullValue }

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == BoolValue
}

// Int returns the number as int64 if it is an integer in range.
func (v Value) Int() (int64, bool) {
	if v.kind != NumberValue {
		return 0, false
	}
	n, err := v.num.Int64()
	return n, err == nil
}

// Uint returns the number as uint64 if it is a non-negative integer in range.
func (v Value) Uint() (uint64, bool) {
	if v.kind != NumberValue {
		return 0, false
	}
	n, err := strconv.ParseUint(v.num.String(), 10, 64)
	return n, err == nil
}

func (v Value) Float() (float64, bool) {
	if v.kind != NumberValue {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == StringValue
}

// Len returns the number of elements of an array or members of an object.
func (v Value) Len() int {
	switch v.kind {
	case ArrayValue:
		return len(v.arr)
	case ObjectValue:
		return len(v.obj)
	default:
		return 0
	}
}

// Index returns the i-th element of an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != ArrayValue || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Get returns the member key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != ObjectValue {
		return Value{}, false
	}
	e, ok := v.obj[key]
	return e, ok
}

// Lookup follows a chain of object keys.
func (v Value) Lookup(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Keys returns the sorted member names of an object.
func (v Value) Keys() []string {
	if v.kind != ObjectValue {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is a decoded service payload whose schema is not known ahead of
// time, typically one element of a search result.
type Document struct {
	Value
}

// DecodeDocument decodes body into a Document.
func DecodeDocument(body []byte) (Document, error) {
	v, err := DecodeValue(body)
	if err != nil {
		return Document{}, err
	}
	return Document{Value: v}, nil
}

// DecodeDocuments decodes a search result. A top-level value that is not an
// array yields no documents.
func DecodeDocuments(body []byte) ([]Document, error) {
	v, err := DecodeValue(body)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, v.Len())
	if v.Kind() != ArrayValue {
		return docs, nil
	}
	for _, e := range v.arr {
		docs = append(docs, Document{Value: e})
	}
	return docs, nil
}

// ID returns the "id" member when it is a non-negative integer.
func (d Document) ID() (uint64, bool) {
	v, ok := d.Get("id")
	if !ok {
		return 0, false
	}
	return v.Uint()
}

// Path returns the "path" member when it is a string.
func (d Document) Path() (string, bool) {
	v, ok := d.Get("path")
	if !ok {
		return "", false
	}
	return v.Str()
}
