// Package value implements the structured value that crosses the host/plugin
// boundary, and the arena of reference-counted handles plugins use to share
// configuration trees with the host.
package value

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds. The zero Kind is invalid so that a zero Value is never
// mistaken for real data.
const (
	KindInvalid Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindDateTime
	KindArray
	KindTable
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDateTime:
		return "datetime"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	default:
		return "invalid"
	}
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k := KindString; k <= KindTable; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return KindInvalid, false
}

// Value is a self-describing tree value. Values are immutable from the
// caller's point of view: accessors return copies of composite contents.
type Value struct {
	dt   DateTime
	str  string
	arr  []Value
	tbl  []Entry
	i    int64
	f    float64
	kind Kind
	b    bool
}

// Entry is a single key/value pair of a table. Tables keep insertion order.
type Entry struct {
	Key   string
	Value Value
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Integer creates a 64-bit signed integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float creates a 64-bit float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Boolean creates a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// FromDateTime creates a datetime value.
func FromDateTime(dt DateTime) Value { return Value{kind: KindDateTime, dt: dt.clone()} }

// Array creates an array value holding copies of items.
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	for i, item := range items {
		arr[i] = item.Clone()
	}
	return Value{kind: KindArray, arr: arr}
}

// Table creates a table value holding copies of entries, in order.
// Duplicate keys are accepted here but rejected at the plugin boundary.
func Table(entries ...Entry) Value {
	tbl := make([]Entry, len(entries))
	for i, e := range entries {
		tbl[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
	}
	return Value{kind: KindTable, tbl: tbl}
}

// Field is shorthand for building a table Entry.
func Field(key string, v Value) Entry { return Entry{Key: key, Value: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a known variant.
func (v Value) IsValid() bool { return v.kind >= KindString && v.kind <= KindTable }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInteger returns the integer payload.
func (v Value) AsInteger() (int64, bool) { return v.i, v.kind == KindInteger }

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBoolean returns the boolean payload.
func (v Value) AsBoolean() (bool, bool) { return v.b, v.kind == KindBoolean }

// AsDateTime returns the datetime payload.
func (v Value) AsDateTime() (DateTime, bool) { return v.dt.clone(), v.kind == KindDateTime }

// Elements returns a copy of the array items. Nil for non-arrays.
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.arr))
	for i, item := range v.arr {
		out[i] = item.Clone()
	}
	return out
}

// Entries returns a copy of the table entries. Nil for non-tables.
func (v Value) Entries() []Entry {
	if v.kind != KindTable {
		return nil
	}
	out := make([]Entry, len(v.tbl))
	for i, e := range v.tbl {
		out[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
	}
	return out
}

// Len returns the number of array items or table entries.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindTable:
		return len(v.tbl)
	default:
		return 0
	}
}

// Lookup returns the first table entry with the given key.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindTable {
		return Value{}, false
	}
	for _, e := range v.tbl {
		if e.Key == key {
			return e.Value.Clone(), true
		}
	}
	return Value{}, false
}

// With returns a copy of the table with key set to val. The first entry
// matching key is replaced; otherwise the entry is appended.
// Calling With on a non-table returns a single-entry table.
func (v Value) With(key string, val Value) Value {
	if v.kind != KindTable {
		return Table(Field(key, val))
	}
	out := v.Clone()
	for i := range out.tbl {
		if out.tbl[i].Key == key {
			out.tbl[i].Value = val.Clone()
			return out
		}
	}
	out.tbl = append(out.tbl, Entry{Key: key, Value: val.Clone()})
	return out
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	out.dt = v.dt.clone()
	if v.arr != nil {
		out.arr = make([]Value, len(v.arr))
		for i, item := range v.arr {
			out.arr[i] = item.Clone()
		}
	}
	if v.tbl != nil {
		out.tbl = make([]Entry, len(v.tbl))
		for i, e := range v.tbl {
			out.tbl[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	return out
}

// Equal reports structural equality. NaN floats compare equal to NaN so that
// encoded values survive a round trip unchanged.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindInteger:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case KindBoolean:
		return v.b == other.b
	case KindDateTime:
		return v.dt.Equal(other.dt)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindTable:
		if len(v.tbl) != len(other.tbl) {
			return false
		}
		for i := range v.tbl {
			if v.tbl[i].Key != other.tbl[i].Key || !v.tbl[i].Value.Equal(other.tbl[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Validate checks that v can cross the plugin boundary: every node holds a
// known variant, datetimes are representable and no table repeats a key.
func (v Value) Validate() error {
	return v.validate("$")
}

func (v Value) validate(path string) error {
	switch v.kind {
	case KindString, KindInteger, KindFloat, KindBoolean:
		return nil
	case KindDateTime:
		if err := v.dt.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	case KindArray:
		for i, item := range v.arr {
			if err := item.validate(fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case KindTable:
		seen := make(map[string]struct{}, len(v.tbl))
		for _, e := range v.tbl {
			if _, dup := seen[e.Key]; dup {
				return fmt.Errorf("%s: %w %q", path, ErrDuplicateKey, e.Key)
			}
			seen[e.Key] = struct{}{}
			if err := e.Value.validate(path + "." + e.Key); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s: %w (kind %d)", path, ErrMalformed, v.kind)
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindDateTime:
		return v.dt.String()
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.arr))
	case KindTable:
		return fmt.Sprintf("table(%d)", len(v.tbl))
	default:
		return "invalid"
	}
}
