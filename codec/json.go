package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/chazu/ripley/value"
)

// JSON encodes a value tree as JSON text. Object entries are written
// in insertion order, which the standard library's map-based encoding
// cannot do, so the encoder walks the tree itself. Non-string scalar
// keys are rendered as their text form; decoding always yields string
// keys, so such keys do not round-trip. Container keys have no JSON
// form and fail.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Encode renders the tree as compact JSON.
func (JSON) Encode(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendJSON(buf *bytes.Buffer, v value.Value) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch n := v.(type) {
	case *value.Object:
		buf.WriteByte('{')
		for i := 0; i < n.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, e := n.At(i)
			ks, err := jsonKey(k)
			if err != nil {
				return err
			}
			kb, err := json.Marshal(ks)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := appendJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case *value.Array:
		buf.WriteByte('[')
		for i := 0; i < n.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, n.Get(i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *value.String:
		b, err := json.Marshal(n.Value())
		if err != nil {
			return err
		}
		buf.Write(b)
	case *value.Number:
		b, err := json.Marshal(n.Native())
		if err != nil {
			return fmt.Errorf("codec: encode json number: %w", err)
		}
		buf.Write(b)
	case *value.Bool:
		if n.Value() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	default:
		// None is the only variant left.
		buf.WriteString("null")
	}
	return nil
}

func jsonKey(k value.Value) (string, error) {
	switch n := k.(type) {
	case *value.String:
		return n.Value(), nil
	case *value.Number:
		return n.String(), nil
	case *value.Bool:
		return n.String(), nil
	}
	if k.Kind() == value.KindNone {
		return "null", nil
	}
	return "", &value.TypeNotAllowedError{Type: reflect.TypeOf(k), Reason: "container key has no JSON form"}
}

// Decode parses JSON text into a tree, preserving object key order.
// Integral numbers decode as int64, everything else as float64.
func (JSON) Decode(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("codec: decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("codec: decode json: trailing data after value")
	}
	return v, nil
}

func parseJSON(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := value.NewObject()
			for dec.More() {
				ktok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := ktok.(string)
				if !ok {
					return nil, fmt.Errorf("object key token is %T", ktok)
				}
				val, err := parseJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.PutString(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := value.NewArray(0)
			for dec.More() {
				item, err := parseJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return value.NewString(t), nil
	case bool:
		return value.NewBool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return value.NewNumber(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t.String(), err)
		}
		return value.NewNumber(f), nil
	case nil:
		return value.None, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
