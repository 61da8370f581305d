package param

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind is the concrete type carried by a Value.
type ValueKind string

// Value kind constants.
const (
	KindString ValueKind = "string"
	KindFloat  ValueKind = "float"
	KindInt    ValueKind = "int"
	KindBool   ValueKind = "bool"
)

// Value is an immutable tagged union of the supported parameter value types.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	n    int64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Float creates a float value.
func Float(f float64) Value { return Value{kind: KindFloat, num: f} }

// Int creates an integer value.
func Int(n int64) Value { return Value{kind: KindInt, n: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// Float returns the numeric value. Integer values are widened;
// other kinds return 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.num
	case KindInt:
		return float64(v.n)
	default:
		return 0
	}
}

// Int returns the integer value. Float values are truncated;
// other kinds return 0.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.n
	case KindFloat:
		return int64(v.num)
	default:
		return 0
	}
}

// Bool returns the boolean value, or false for other kinds.
func (v Value) Bool() bool {
	return v.kind == KindBool && v.b
}

// String returns the canonical text rendering. For string values this is
// the raw value; the rendering round-trips through Parse for every kind.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool { return v == o }

// MarshalJSON renders the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindFloat:
		return json.Marshal(v.num)
	case KindInt:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %q", v.kind)
	}
}

// UnmarshalJSON sniffs a JSON scalar back into a tagged value: quoted
// input becomes a string, true/false a bool, and numbers split into
// int and float by the presence of a fraction or exponent.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return fmt.Errorf("unmarshal value: empty input")
	}
	switch {
	case s[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("unmarshal string value: %w", err)
		}
		*v = String(str)
	case s == "true" || s == "false":
		*v = Bool(s == "true")
	default:
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				*v = Int(n)
				return nil
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("unmarshal value: unsupported scalar %s", s)
		}
		*v = Float(f)
	}
	return nil
}

// Parse reconstructs a Value of the given kind from its canonical rendering.
func Parse(kind ValueKind, s string) (Value, error) {
	switch kind {
	case KindString:
		return String(s), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float value %q: %w", s, err)
		}
		return Float(f), nil
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int value %q: %w", s, err)
		}
		return Int(n), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool value %q: %w", s, err)
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("parse value: unknown kind %q", kind)
	}
}
