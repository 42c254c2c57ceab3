package transform

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"time"

	"github.com/chazu/ripley/value"
)

// ---------------------------------------------------------------------------
// Builtin transformers
// ---------------------------------------------------------------------------

func init() {
	Register("time.rfc3339", Time{})
	Register("bytes.base64", Base64{})
	RegisterType(reflect.TypeOf(time.Time{}), Time{}, false)
}

// Time serializes time.Time as an RFC 3339 string with nanosecond
// precision. It is bound to time.Time in the default registry, so
// time fields round-trip without annotation.
type Time struct{}

func (Time) ToGeneric(v any) (value.Value, error) {
	switch t := v.(type) {
	case time.Time:
		return value.NewString(t.Format(time.RFC3339Nano)), nil
	case *time.Time:
		if t == nil {
			return value.None, nil
		}
		return value.NewString(t.Format(time.RFC3339Nano)), nil
	}
	return nil, fmt.Errorf("transform: time transformer given %T, want time.Time", v)
}

func (Time) FromGeneric(v value.Value, target reflect.Type) (any, error) {
	if v == nil || v.Kind() == value.KindNone {
		return nil, nil
	}
	s, ok := v.(*value.String)
	if !ok {
		return nil, fmt.Errorf("transform: time transformer given %s value, want string", v.Kind())
	}
	t, err := time.Parse(time.RFC3339Nano, s.Value())
	if err != nil {
		return nil, fmt.Errorf("transform: parse time: %w", err)
	}
	return t, nil
}

// Base64 serializes a byte slice as a standard-encoding base64 string.
// Registered under the name "bytes.base64".
type Base64 struct{}

func (Base64) ToGeneric(v any) (value.Value, error) {
	switch b := v.(type) {
	case []byte:
		return value.NewString(base64.StdEncoding.EncodeToString(b)), nil
	case nil:
		return value.None, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return value.NewString(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
	}
	return nil, fmt.Errorf("transform: base64 transformer given %T, want []byte", v)
}

func (Base64) FromGeneric(v value.Value, target reflect.Type) (any, error) {
	if v == nil || v.Kind() == value.KindNone {
		return nil, nil
	}
	s, ok := v.(*value.String)
	if !ok {
		return nil, fmt.Errorf("transform: base64 transformer given %s value, want string", v.Kind())
	}
	b, err := base64.StdEncoding.DecodeString(s.Value())
	if err != nil {
		return nil, fmt.Errorf("transform: decode base64: %w", err)
	}
	if target != nil && target.Kind() == reflect.String {
		return string(b), nil
	}
	return b, nil
}
