// Package record models ServiceNow table rows as loosely-typed field maps.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindReference
	// KindRaw holds any other JSON (arrays, non-reference objects) verbatim.
	KindRaw
)

// Reference is the object shape ServiceNow returns for reference fields
// when sysparm_display_value or dot-walking is used.
type Reference struct {
	DisplayValue string `json:"display_value,omitempty"`
	Value        string `json:"value,omitempty"`
	Link         string `json:"link,omitempty"`
}

// Value is one field of a record.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	ref  Reference
	raw  json.RawMessage
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a numeric literal.
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Ref wraps a reference object.
func Ref(r Reference) Value { return Value{kind: KindReference, ref: r} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Reference returns the reference object and whether v holds one.
func (v Value) Reference() (Reference, bool) {
	return v.ref, v.kind == KindReference
}

// Text renders v as a plain string. References unwrap to their display value,
// then their raw value. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindReference:
		if v.ref.DisplayValue != "" {
			return v.ref.DisplayValue
		}
		return v.ref.Value
	case KindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Interface converts v into plain Go values (string, json.Number, bool,
// map[string]any, nil) suitable for expression evaluation.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindReference:
		if v.raw != nil {
			return decodeRaw(v.raw)
		}
		m := map[string]any{}
		if v.ref.DisplayValue != "" {
			m["display_value"] = v.ref.DisplayValue
		}
		if v.ref.Value != "" {
			m["value"] = v.ref.Value
		}
		if v.ref.Link != "" {
			m["link"] = v.ref.Link
		}
		return m
	case KindRaw:
		return decodeRaw(v.raw)
	default:
		return nil
	}
}

func decodeRaw(raw json.RawMessage) any {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// MarshalJSON writes v back in the same shape it was decoded from. Decoded
// references keep their original bytes, so empty keys survive the round trip.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if v.num == "" {
			return []byte("0"), nil
		}
		return []byte(v.num), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindReference:
		if v.raw != nil {
			return v.raw, nil
		}
		return json.Marshal(v.ref)
	case KindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

var errEmptyValue = errors.New("record: empty value")

// UnmarshalJSON decodes a field, classifying it by its leading token.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errEmptyValue
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decode bool: %w", err)
		}
		*v = Bool(b)
		return nil
	case '{':
		if ref, ok := decodeReference(data); ok {
			*v = Value{kind: KindReference, ref: ref, raw: append(json.RawMessage(nil), data...)}
			return nil
		}
	case '[':
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		*v = Number(n)
		return nil
	}
	*v = Value{kind: KindRaw, raw: append(json.RawMessage(nil), data...)}
	return nil
}

// decodeReference accepts objects whose keys are a subset of the reference shape.
func decodeReference(data []byte) (Reference, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil || len(m) == 0 {
		return Reference{}, false
	}
	var ref Reference
	for k, raw := range m {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Reference{}, false
		}
		switch k {
		case "display_value":
			ref.DisplayValue = s
		case "value":
			ref.Value = s
		case "link":
			ref.Link = s
		default:
			return Reference{}, false
		}
	}
	return ref, true
}

// Record is one table row keyed by field name. Records are passed through
// unchanged; sys_id is present by convention.
type Record map[string]Value

// SysID returns the row's sys_id, or "" when absent.
func (r Record) SysID() string {
	return r.Text("sys_id")
}

// Text returns the plain-text rendering of a field, or "" when absent.
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	return v.Text()
}

// Interface converts the record into a map of plain Go values.
func (r Record) Interface() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}
