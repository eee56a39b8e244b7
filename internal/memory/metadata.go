package memory

import (
	"bytes"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Kind enumerates the value kinds a metadata field may carry. The set
// is closed: arrays and nulls are rejected at decode time.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindMap
)

// Value is a single metadata value.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Map  *Metadata
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// MapValue wraps a nested metadata map.
func MapValue(m Metadata) Value { return Value{Kind: KindMap, Map: &m} }

// MarshalJSON encodes the value according to its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindMap:
		if v.Map == nil {
			return []byte("{}"), nil
		}
		return v.Map.MarshalJSON()
	}
	return nil, goerr.Wrap(ErrMetadataKind, "marshal metadata value", goerr.V("kind", int(v.Kind)))
}

// Metadata is an ordered key-value bag attached to an entry. Keys keep
// their insertion order through JSON round-trips; values are limited to
// strings, numbers, booleans, and nested maps.
type Metadata struct {
	keys   []string
	values map[string]Value
}

// Set stores a value under key, appending the key on first use.
func (m *Metadata) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key.
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.keys) }

// MarshalJSON writes the bag as a JSON object in key insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving document key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return goerr.Wrap(err, "decode metadata", goerr.T(TagValidation))
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return goerr.Wrap(ErrMetadataKind, "decode metadata: expected object")
	}

	*m = Metadata{}
	if err := m.decodeObject(dec); err != nil {
		return err
	}
	return nil
}

// decodeObject consumes key/value pairs up to and including the
// object's closing brace. The opening brace is already consumed.
func (m *Metadata) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return goerr.Wrap(err, "decode metadata key", goerr.T(TagValidation))
		}
		key, ok := keyTok.(string)
		if !ok {
			return goerr.Wrap(ErrMetadataKind, "decode metadata: non-string key")
		}
		val, err := decodeValue(dec)
		if err != nil {
			return err
		}
		m.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return goerr.Wrap(err, "decode metadata close", goerr.T(TagValidation))
	}
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, goerr.Wrap(err, "decode metadata value", goerr.T(TagValidation))
	}
	switch t := tok.(type) {
	case json.Delim:
		if t != '{' {
			return Value{}, goerr.Wrap(ErrMetadataKind, "decode metadata: arrays not supported")
		}
		var nested Metadata
		if err := nested.decodeObject(dec); err != nil {
			return Value{}, err
		}
		return MapValue(nested), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, goerr.Wrap(err, "decode metadata number", goerr.T(TagValidation))
		}
		return NumberValue(f), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return Value{}, goerr.Wrap(ErrMetadataKind, "decode metadata: null not supported")
	}
	return Value{}, goerr.Wrap(ErrMetadataKind, "decode metadata value")
}
