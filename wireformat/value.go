package wireformat

import (
	"encoding/json"
	"fmt"
	"strconv"

	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/value"
)

// ValueWire is the JSON wire format of a structured value. Type selects the
// populated field. Floats travel as strings so that NaN and infinities
// survive the trip.
type ValueWire struct {
	DateTime *DateTimeWire `json:"datetime,omitempty"`
	String   *string       `json:"string,omitempty"`
	Integer  *int64        `json:"integer,omitempty"`
	Float    *string       `json:"float,omitempty"`
	Boolean  *bool         `json:"boolean,omitempty"`
	Type     string        `json:"type"`
	Array    []ValueWire   `json:"array,omitempty"`
	Table    []EntryWire   `json:"table,omitempty"`
}

// EntryWire is one ordered table entry.
type EntryWire struct {
	Key   string    `json:"key"`
	Value ValueWire `json:"value"`
}

// DateTimeWire mirrors value.DateTime.
type DateTimeWire struct {
	Date   *DateWire   `json:"date,omitempty"`
	Time   *TimeWire   `json:"time,omitempty"`
	Offset *OffsetWire `json:"offset,omitempty"`
}

// DateWire is a calendar date.
type DateWire struct {
	Year  uint16 `json:"year"`
	Month uint8  `json:"month"`
	Day   uint8  `json:"day"`
}

// TimeWire is a time of day.
type TimeWire struct {
	Nanosecond uint32 `json:"nanosecond,omitempty"`
	Hour       uint8  `json:"hour"`
	Minute     uint8  `json:"minute"`
	Second     uint8  `json:"second"`
}

// OffsetWire is either {"kind":"z"} or {"kind":"custom","hours":h,"minutes":m}.
type OffsetWire struct {
	Kind     string `json:"kind"`
	Hours    int8   `json:"hours,omitempty"`
	Minutes  uint8  `json:"minutes,omitempty"`
	Negative bool   `json:"negative,omitempty"`
}

const (
	offsetZ      = "z"
	offsetCustom = "custom"
)

// MarshalValue encodes v as JSON.
func MarshalValue(v value.Value) ([]byte, error) {
	w, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, &derrors.TransportError{Operation: "encode", Type: "value", Err: err}
	}
	return data, nil
}

// UnmarshalValue decodes JSON produced by MarshalValue (or a guest).
func UnmarshalValue(data []byte) (value.Value, error) {
	var w ValueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return value.Value{}, &derrors.TransportError{Operation: "decode", Type: "value", Err: err}
	}
	return DecodeValue(w)
}

// EncodeValue converts v to its wire form. Values that fail Validate
// (malformed variants, bad datetimes, duplicate keys) are rejected.
func EncodeValue(v value.Value) (ValueWire, error) {
	if err := v.Validate(); err != nil {
		return ValueWire{}, &derrors.TransportError{Operation: "encode", Type: "value", Err: err}
	}
	return encode(v), nil
}

func encode(v value.Value) ValueWire {
	w := ValueWire{Type: v.Kind().String()}
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		w.String = &s
	case value.KindInteger:
		i, _ := v.AsInteger()
		w.Integer = &i
	case value.KindFloat:
		f, _ := v.AsFloat()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		w.Float = &s
	case value.KindBoolean:
		b, _ := v.AsBoolean()
		w.Boolean = &b
	case value.KindDateTime:
		dt, _ := v.AsDateTime()
		w.DateTime = encodeDateTime(dt)
	case value.KindArray:
		items := v.Elements()
		w.Array = make([]ValueWire, len(items))
		for i, item := range items {
			w.Array[i] = encode(item)
		}
	case value.KindTable:
		entries := v.Entries()
		w.Table = make([]EntryWire, len(entries))
		for i, e := range entries {
			w.Table[i] = EntryWire{Key: e.Key, Value: encode(e.Value)}
		}
	}
	return w
}

func encodeDateTime(dt value.DateTime) *DateTimeWire {
	out := &DateTimeWire{}
	if d := dt.Date; d != nil {
		out.Date = &DateWire{Year: d.Year, Month: d.Month, Day: d.Day}
	}
	if t := dt.Time; t != nil {
		out.Time = &TimeWire{Hour: t.Hour, Minute: t.Minute, Second: t.Second, Nanosecond: t.Nanosecond}
	}
	if o := dt.Offset; o != nil {
		if o.Z {
			out.Offset = &OffsetWire{Kind: offsetZ}
		} else {
			out.Offset = &OffsetWire{Kind: offsetCustom, Hours: o.Hours, Minutes: o.Minutes, Negative: o.Negative}
		}
	}
	return out
}

// DecodeValue converts a wire value back into a value.Value and validates it.
func DecodeValue(w ValueWire) (value.Value, error) {
	v, err := decode(w, "$")
	if err == nil {
		err = v.Validate()
	}
	if err != nil {
		return value.Value{}, &derrors.TransportError{Operation: "decode", Type: "value", Err: err}
	}
	return v, nil
}

func decode(w ValueWire, path string) (value.Value, error) {
	kind, ok := value.ParseKind(w.Type)
	if !ok {
		return value.Value{}, fmt.Errorf("%s: %w: unknown type %q", path, value.ErrMalformed, w.Type)
	}
	missing := func() error {
		return fmt.Errorf("%s: %w: %s payload missing", path, value.ErrMalformed, w.Type)
	}
	switch kind {
	case value.KindString:
		if w.String == nil {
			return value.Value{}, missing()
		}
		return value.String(*w.String), nil
	case value.KindInteger:
		if w.Integer == nil {
			return value.Value{}, missing()
		}
		return value.Integer(*w.Integer), nil
	case value.KindFloat:
		if w.Float == nil {
			return value.Value{}, missing()
		}
		f, err := strconv.ParseFloat(*w.Float, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w: %v", path, value.ErrMalformed, err)
		}
		return value.Float(f), nil
	case value.KindBoolean:
		if w.Boolean == nil {
			return value.Value{}, missing()
		}
		return value.Boolean(*w.Boolean), nil
	case value.KindDateTime:
		if w.DateTime == nil {
			return value.Value{}, missing()
		}
		dt, err := decodeDateTime(*w.DateTime)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w", path, err)
		}
		return value.FromDateTime(dt), nil
	case value.KindArray:
		items := make([]value.Value, len(w.Array))
		for i, item := range w.Array {
			v, err := decode(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	default:
		entries := make([]value.Entry, len(w.Table))
		for i, e := range w.Table {
			v, err := decode(e.Value, path+"."+e.Key)
			if err != nil {
				return value.Value{}, err
			}
			entries[i] = value.Field(e.Key, v)
		}
		return value.Table(entries...), nil
	}
}

func decodeDateTime(w DateTimeWire) (value.DateTime, error) {
	var dt value.DateTime
	if d := w.Date; d != nil {
		dt.Date = &value.Date{Year: d.Year, Month: d.Month, Day: d.Day}
	}
	if t := w.Time; t != nil {
		dt.Time = &value.Time{Hour: t.Hour, Minute: t.Minute, Second: t.Second, Nanosecond: t.Nanosecond}
	}
	if o := w.Offset; o != nil {
		switch o.Kind {
		case offsetZ:
			dt.Offset = &value.Offset{Z: true}
		case offsetCustom:
			dt.Offset = &value.Offset{Hours: o.Hours, Minutes: o.Minutes, Negative: o.Negative}
		default:
			return value.DateTime{}, fmt.Errorf("%w: offset kind %q", value.ErrDateTime, o.Kind)
		}
	}
	if err := dt.Validate(); err != nil {
		return value.DateTime{}, err
	}
	return dt, nil
}
