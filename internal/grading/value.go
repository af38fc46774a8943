package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags which shape a Value holds.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueString
	ValueList
	ValueBool
	ValueNumber
)

// Value is a submitted answer or a canonical correct answer. On the wire it is
// one of a JSON string, array of strings, boolean or number.
type Value struct {
	kind ValueKind
	str  string
	list []string
	b    bool
	num  float64
}

// StringValue wraps a plain string answer.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// ListValue wraps a list of selected choices.
func ListValue(items ...string) Value {
	list := make([]string, len(items))
	copy(list, items)
	return Value{kind: ValueList, list: list}
}

// BoolValue wraps a boolean answer.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// NumberValue wraps a numeric answer.
func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }

// Kind reports which shape the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value is empty (never set or decoded from null).
func (v Value) IsZero() bool { return v.kind == ValueNone }

// String renders the value as the checker compares it: booleans as
// "true"/"false", numbers in shortest decimal form, lists joined by commas.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueList:
		return strings.Join(v.list, ",")
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

func (v Value) clone() Value {
	if v.kind == ValueList {
		return ListValue(v.list...)
	}
	return v
}

// MarshalJSON encodes the value in its original JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any of the four accepted JSON shapes.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("grading: empty answer value")
	}

	switch data[0] {
	case 'n':
		*v = Value{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("grading: answer list must contain only strings: %w", err)
		}
		*v = Value{kind: ValueList, list: list}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("grading: unsupported answer value %s", data)
		}
		*v = NumberValue(n)
		return nil
	}
}
