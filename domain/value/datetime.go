package value

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without zone.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// Time is a wall-clock time of day.
type Time struct {
	Hour       uint8
	Minute     uint8
	Second     uint8
	Nanosecond uint32
}

// Offset is a UTC offset. Z marks the literal "Z" designator; otherwise
// Hours and Minutes give the signed offset (the sign is carried by Hours,
// or by Negative when Hours is zero).
type Offset struct {
	Hours    int8
	Minutes  uint8
	Z        bool
	Negative bool
}

// DateTime mirrors the TOML family of date/time values: any combination of
// date, time and offset, where an offset requires both date and time.
type DateTime struct {
	Date   *Date
	Time   *Time
	Offset *Offset
}

// FromTime converts a time.Time into a full offset datetime.
func FromTime(t time.Time) DateTime {
	_, secs := t.Zone()
	off := &Offset{}
	if secs == 0 && t.Location() == time.UTC {
		off.Z = true
	} else {
		neg := secs < 0
		if neg {
			secs = -secs
		}
		h := int8(secs / 3600) //nolint:gosec // G115: zone offsets are within ±24h
		if neg {
			h = -h
		}
		off.Hours = h
		off.Minutes = uint8((secs % 3600) / 60) //nolint:gosec // G115: bounded by 60
		off.Negative = neg
	}
	return DateTime{
		Date: &Date{Year: uint16(t.Year()), Month: uint8(t.Month()), Day: uint8(t.Day())}, //nolint:gosec // G115: calendar fields
		Time: &Time{
			Hour:       uint8(t.Hour()),   //nolint:gosec // G115: 0-23
			Minute:     uint8(t.Minute()), //nolint:gosec // G115: 0-59
			Second:     uint8(t.Second()), //nolint:gosec // G115: 0-59
			Nanosecond: uint32(t.Nanosecond()),
		},
		Offset: off,
	}
}

// ToTime converts dt to a time.Time. It only succeeds for full offset datetimes.
func (dt DateTime) ToTime() (time.Time, bool) {
	if dt.Date == nil || dt.Time == nil || dt.Offset == nil {
		return time.Time{}, false
	}
	loc := time.UTC
	if !dt.Offset.Z {
		secs := int(absInt8(dt.Offset.Hours))*3600 + int(dt.Offset.Minutes)*60
		if dt.Offset.isNegative() {
			secs = -secs
		}
		loc = time.FixedZone("", secs)
	}
	return time.Date(int(dt.Date.Year), time.Month(dt.Date.Month), int(dt.Date.Day),
		int(dt.Time.Hour), int(dt.Time.Minute), int(dt.Time.Second), int(dt.Time.Nanosecond), loc), true
}

// Validate reports whether dt is representable.
func (dt DateTime) Validate() error {
	if dt.Date == nil && dt.Time == nil {
		return fmt.Errorf("%w: neither date nor time set", ErrDateTime)
	}
	if dt.Offset != nil && (dt.Date == nil || dt.Time == nil) {
		return fmt.Errorf("%w: offset requires date and time", ErrDateTime)
	}
	if d := dt.Date; d != nil {
		if d.Month < 1 || d.Month > 12 {
			return fmt.Errorf("%w: month %d", ErrDateTime, d.Month)
		}
		if d.Day < 1 || int(d.Day) > daysIn(int(d.Year), time.Month(d.Month)) {
			return fmt.Errorf("%w: day %d of %04d-%02d", ErrDateTime, d.Day, d.Year, d.Month)
		}
	}
	if t := dt.Time; t != nil {
		if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
			return fmt.Errorf("%w: time %02d:%02d:%02d", ErrDateTime, t.Hour, t.Minute, t.Second)
		}
		if t.Nanosecond >= 1_000_000_000 {
			return fmt.Errorf("%w: nanosecond %d", ErrDateTime, t.Nanosecond)
		}
	}
	if o := dt.Offset; o != nil && !o.Z {
		if o.Hours < -23 || o.Hours > 23 || o.Minutes > 59 {
			return fmt.Errorf("%w: offset %d:%02d", ErrDateTime, o.Hours, o.Minutes)
		}
	}
	return nil
}

// Equal reports field-wise equality.
func (dt DateTime) Equal(other DateTime) bool {
	if (dt.Date == nil) != (other.Date == nil) || (dt.Time == nil) != (other.Time == nil) ||
		(dt.Offset == nil) != (other.Offset == nil) {
		return false
	}
	if dt.Date != nil && *dt.Date != *other.Date {
		return false
	}
	if dt.Time != nil && *dt.Time != *other.Time {
		return false
	}
	if dt.Offset != nil {
		a, b := *dt.Offset, *other.Offset
		if a.Z || b.Z {
			return a.Z == b.Z
		}
		return a.Hours == b.Hours && a.Minutes == b.Minutes && a.isNegative() == b.isNegative()
	}
	return true
}

// String renders dt in RFC 3339 / TOML layout.
func (dt DateTime) String() string {
	var sb strings.Builder
	if d := dt.Date; d != nil {
		fmt.Fprintf(&sb, "%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	if t := dt.Time; t != nil {
		if dt.Date != nil {
			sb.WriteByte('T')
		}
		fmt.Fprintf(&sb, "%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
		if t.Nanosecond > 0 {
			fmt.Fprintf(&sb, ".%09d", t.Nanosecond)
		}
	}
	if o := dt.Offset; o != nil {
		if o.Z {
			sb.WriteByte('Z')
		} else {
			sign := byte('+')
			if o.isNegative() {
				sign = '-'
			}
			fmt.Fprintf(&sb, "%c%02d:%02d", sign, absInt8(o.Hours), o.Minutes)
		}
	}
	return sb.String()
}

func (dt DateTime) clone() DateTime {
	var out DateTime
	if dt.Date != nil {
		d := *dt.Date
		out.Date = &d
	}
	if dt.Time != nil {
		t := *dt.Time
		out.Time = &t
	}
	if dt.Offset != nil {
		o := *dt.Offset
		out.Offset = &o
	}
	return out
}

func (o Offset) isNegative() bool {
	return o.Hours < 0 || (o.Hours == 0 && o.Negative)
}

func absInt8(v int8) int8 {
	if v < 0 {
		return -v
	}
	return v
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
