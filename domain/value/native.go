package value

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// FromNative converts a decoded configuration document (as produced by YAML
// or JSON decoders) into a Value. Map keys are sorted since Go maps carry no
// order. Unsigned integers beyond the int64 range fail with ErrOverflow and
// nil has no representation.
func FromNative(in any) (Value, error) {
	return fromNative(in, "$")
}

func fromNative(in any, path string) (Value, error) {
	switch v := in.(type) {
	case Value:
		return v.Clone(), nil
	case string:
		return String(v), nil
	case bool:
		return Boolean(v), nil
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint:
		return fromUnsigned(uint64(v), path)
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint64:
		return fromUnsigned(v, path)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case time.Time:
		return FromDateTime(FromTime(v)), nil
	case DateTime:
		if err := v.Validate(); err != nil {
			return Value{}, fmt.Errorf("%s: %w", path, err)
		}
		return FromDateTime(v), nil
	case []any:
		items := make([]Value, 0, len(v))
		for i, item := range v {
			cv, err := fromNative(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, cv)
		}
		return Value{kind: KindArray, arr: items}, nil
	case []string:
		items := make([]Value, len(v))
		for i, s := range v {
			items[i] = String(s)
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			cv, err := fromNative(v[k], path+"."+k)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, Entry{Key: k, Value: cv})
		}
		return Value{kind: KindTable, tbl: entries}, nil
	case map[any]any:
		converted := make(map[string]any, len(v))
		for k, item := range v {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%s: %w: non-string key %T", path, ErrUnsupported, k)
			}
			converted[ks] = item
		}
		return fromNative(converted, path)
	case nil:
		return Value{}, fmt.Errorf("%s: %w: null", path, ErrUnsupported)
	default:
		return Value{}, fmt.Errorf("%s: %w: %T", path, ErrUnsupported, in)
	}
}

func fromUnsigned(u uint64, path string) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%s: %w: %d", path, ErrOverflow, u)
	}
	return Integer(int64(u)), nil
}

// ToNative converts v into plain Go values: string, int64, float64, bool,
// time.Time (full offset datetimes) or DateTime (partial ones), []any and
// map[string]any. Table order is lost; use Entries when order matters.
func ToNative(v Value) (any, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindInteger:
		return v.i, nil
	case KindFloat:
		return v.f, nil
	case KindBoolean:
		return v.b, nil
	case KindDateTime:
		if t, ok := v.dt.ToTime(); ok {
			return t, nil
		}
		return v.dt.clone(), nil
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			n, err := ToNative(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case KindTable:
		out := make(map[string]any, len(v.tbl))
		for _, e := range v.tbl {
			if _, dup := out[e.Key]; dup {
				return nil, fmt.Errorf("%w %q", ErrDuplicateKey, e.Key)
			}
			n, err := ToNative(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = n
		}
		return out, nil
	default:
		return nil, ErrMalformed
	}
}
