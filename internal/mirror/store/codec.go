package store

import (
	"fmt"
	"reflect"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/pkg/utils/json"
)

// DateTimeKey tags an encoded time.Time: {"_dt_": "<RFC3339Nano>"}.
const DateTimeKey = "_dt_"

// Codec turns values into stored bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec stores values as JSON. time.Time values anywhere inside maps and
// slices survive the round trip through the DateTimeKey tag. Decoded numbers
// are float64, mappings are map[string]any and sequences are []any.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	tagged, err := tagTimes(reflect.ValueOf(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", errno.ErrUnsupportedValue, v, err)
	}
	data, err := json.Marshal(tagged)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", errno.ErrUnsupportedValue, v, err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrCorruptValue, err)
	}
	return untagTimes(v), nil
}

var timeType = reflect.TypeOf(time.Time{})

// tagTimes rebuilds v out of scalars, map[string]any and []any, replacing
// every time.Time with its DateTimeKey form. Anything that has no JSON
// mapping, sequence or scalar shape is rejected.
func tagTimes(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == timeType {
		return map[string]any{DateTimeKey: v.Interface().(time.Time).Format(time.RFC3339Nano)}, nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return tagTimes(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string", v.Type().Key())
		}
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			e, err := tagTimes(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = e
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := range out {
			e, err := tagTimes(v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s values cannot be stored", v.Type())
	}
}

// Layouts accepted for tagged datetimes. The zone-less form is what naive
// ISO-8601 writers produce; it is read as UTC.
var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

func untagTimes(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t[DateTimeKey].(string); ok && len(t) == 1 {
			for _, layout := range dateTimeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		}
		for k, e := range t {
			t[k] = untagTimes(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = untagTimes(e)
		}
		return t
	default:
		return v
	}
}
