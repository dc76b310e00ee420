package durable

import "errors"

var (
	// ErrInvalidKey is returned when a key is blank or not a valid cookie name.
	ErrInvalidKey = errors.New("durable: invalid key")

	// ErrInvalidValue is returned when a value contains bytes a cookie cannot carry.
	ErrInvalidValue = errors.New("durable: invalid value")

	// ErrValueTooLarge is returned when key+value exceed the per-cookie budget.
	ErrValueTooLarge = errors.New("durable: value too large")
)

// MaxEntryBytes is the browser per-cookie budget (name + value).
const MaxEntryBytes = 4096

// Storage is a synchronous key/value store that survives page reloads.
//
// Get never fails: a missing or unreadable entry is reported as absent.
// Setting an empty value is equivalent to Remove.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c <= ' ' || c >= 0x7f {
			return false
		}
		switch c {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}

// validValue mirrors net/http's cookie value rules so that writes are never silently mangled.
func validValue(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x21 || c > 0x7e || c == '"' || c == ';' || c == '\\' || c == ',' {
			return false
		}
	}
	return true
}

// ValidateEntry reports whether key and value could be written by any Storage in this package.
// An empty value is valid: it means removal.
func ValidateEntry(key, value string) error {
	if value == "" {
		if !validKey(key) {
			return ErrInvalidKey
		}
		return nil
	}
	return checkEntry(key, value)
}

func checkEntry(key, value string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if !validValue(value) {
		return ErrInvalidValue
	}
	if len(key)+len(value) > MaxEntryBytes {
		return ErrValueTooLarge
	}
	return nil
}
