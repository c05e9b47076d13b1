// Package uuid issues time-ordered identifiers for persisted rows.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. The leading 48 bits are the Unix time in
// milliseconds, so IDs issued later compare greater as strings. That makes
// the ID usable as a secondary ordering key for trades entered on the same
// date.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// entropy source failed; a v4 is still unique, just not ordered
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse validates s and returns it in canonical lowercase form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s is a UUID in any accepted form.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
