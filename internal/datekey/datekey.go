// Package datekey defines the compact calendar date key that identifies
// one pipeline run and every artifact it produces.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the compact calendar date format, e.g. "20251208".
const Layout = "20060102"

// Key is a validated run date. The zero value is not a valid key.
type Key struct {
	t time.Time
}

// Parse validates a compact calendar date string. It rejects anything
// that is not exactly eight digits naming a real calendar date:
// separators ("2025-12-08"), out-of-range dates ("20251232"), and the
// empty string all fail.
func Parse(s string) (Key, error) {
	if len(s) != len(Layout) {
		return Key{}, fmt.Errorf("date key %q: want format YYYYMMDD", s)
	}
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return Key{}, fmt.Errorf("date key %q: %w", s, err)
	}
	return Key{t: t}, nil
}

// FromTime builds a key from the calendar date of t, interpreted in UTC.
func FromTime(t time.Time) Key {
	y, m, d := t.UTC().Date()
	return Key{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String renders the key in its compact form.
func (k Key) String() string {
	return k.t.Format(Layout)
}

// Time returns the key's date at midnight UTC.
func (k Key) Time() time.Time {
	return k.t
}

// MarshalText implements encoding.TextMarshaler, rendering the compact form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsZero reports whether the key is the zero value.
func (k Key) IsZero() bool {
	return k.t.IsZero()
}

// Next returns the key for the following calendar day.
func (k Key) Next() Key {
	return Key{t: k.t.AddDate(0, 0, 1)}
}

// Before reports whether k is an earlier date than other.
func (k Key) Before(other Key) bool {
	return k.t.Before(other.t)
}

// After reports whether k is a later date than other.
func (k Key) After(other Key) bool {
	return k.t.After(other.t)
}

// Range returns every key from from to to inclusive. It returns nil
// when to is earlier than from.
func Range(from, to Key) []Key {
	if to.Before(from) {
		return nil
	}
	var keys []Key
	for k := from; !k.After(to); k = k.Next() {
		keys = append(keys, k)
	}
	return keys
}
