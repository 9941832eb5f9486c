package knowledge

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValueKind discriminates the storable property value kinds.
type ValueKind int

const (
	// KindString is a plain string value.
	KindString ValueKind = iota
	// KindNumber is a float64 value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
	// KindStrings is an ordered list of strings.
	KindStrings
)

// Value is a tagged union over the storable property value kinds:
// string, number, boolean, or list of strings. The zero Value is the empty
// string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// String wraps a string as a Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float64 as a Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps a bool as a Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Strings wraps a string list as a Value. The list is copied.
func Strings(ss []string) Value {
	return Value{kind: KindStrings, list: slices.Clone(ss)}
}

// Kind returns the value's kind tag.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload. Zero value for other kinds.
func (v Value) Str() string { return v.str }

// Num returns the number payload. Zero value for other kinds.
func (v Value) Num() float64 { return v.num }

// IsTrue returns the bool payload. False for other kinds.
func (v Value) IsTrue() bool { return v.b }

// List returns a copy of the string-list payload. Nil for other kinds.
func (v Value) List() []string { return slices.Clone(v.list) }

// Equal reports whether two values have the same kind and payload.
// List values compare element-wise in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindStrings:
		return slices.Equal(v.list, o.list)
	}
	return false
}

// Text returns the searchable text form of the value: numbers in their
// shortest decimal form, booleans as "true"/"false", lists comma-joined.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return strings.Join(v.list, ",")
	}
	return ""
}

// MarshalJSON emits the natural JSON form of the payload.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindStrings:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return []byte(`""`), nil
}

// UnmarshalJSON accepts a string, number, boolean, or array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case string:
		*v = String(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("knowledge: invalid number %q: %w", t.String(), err)
		}
		*v = Number(f)
	case bool:
		*v = Bool(t)
	case []any:
		ss := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return fmt.Errorf("knowledge: list values must contain only strings, got %T", el)
			}
			ss = append(ss, s)
		}
		*v = Value{kind: KindStrings, list: ss}
	default:
		return fmt.Errorf("knowledge: unsupported value type %T", raw)
	}
	return nil
}

// Properties is an entity's open property bag.
type Properties map[string]Value

// clone returns a copy of the map. Value payloads are immutable from the
// outside (lists are copied on the way in and out), so a shallow copy is
// enough.
func (p Properties) clone() Properties {
	if p == nil {
		return nil
	}
	cp := make(Properties, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}
