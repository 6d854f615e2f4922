package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ValueKind uint8

const (
	ValueString ValueKind = iota + 1
	ValueInt
	ValueBool
)

// Value is a scalar node property: exactly one of string, int64 or bool.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	b    bool
}

func String(s string) Value { return Value{kind: ValueString, s: s} }
func Int(i int64) Value     { return Value{kind: ValueInt, i: i} }
func Bool(b bool) Value     { return Value{kind: ValueBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsZero() bool    { return v.kind == 0 }

func (v Value) AsString() (string, bool) { return v.s, v.kind == ValueString }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == ValueInt }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == ValueBool }

// Any returns the native Go value, or nil for the zero Value.
func (v Value) Any() any {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return v.i
	case ValueBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := FromAny(raw)
	if !ok {
		return fmt.Errorf("unsupported property value %s", string(b))
	}
	*v = parsed
	return nil
}

// UnmarshalYAML accepts scalar YAML nodes.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := FromAny(raw)
	if !ok {
		return fmt.Errorf("unsupported property value %v", raw)
	}
	*v = parsed
	return nil
}

// FromAny converts a driver or decoder value into a Value. Integral floats and
// json.Number integers become Int; other floats are kept as their string form.
func FromAny(raw any) (Value, bool) {
	switch t := raw.(type) {
	case string:
		return String(t), true
	case bool:
		return Bool(t), true
	case int:
		return Int(int64(t)), true
	case int32:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), true
		}
		return String(strconv.FormatFloat(t, 'f', -1, 64)), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), true
		}
		return String(t.String()), true
	default:
		return Value{}, false
	}
}

type Properties map[string]Value

// Get returns the property and whether it is set.
func (p Properties) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p[key]
	if !ok || v.IsZero() {
		return Value{}, false
	}
	return v, true
}

// Map converts to native values, for drivers that take map[string]any.
func (p Properties) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if v.IsZero() {
			continue
		}
		out[k] = v.Any()
	}
	return out
}

// PropertiesFromMap keeps the scalar entries of m and drops the rest.
func PropertiesFromMap(m map[string]any) Properties {
	out := make(Properties, len(m))
	for k, raw := range m {
		if v, ok := FromAny(raw); ok {
			out[k] = v
		}
	}
	return out
}
