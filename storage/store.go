package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultQuota is the byte quota applied when none is given (50 MiB).
const DefaultQuota int64 = 50 * 1024 * 1024

const (
	numberFlag = "~#~"
	jsonFlag   = "~{~"
	nullFlag   = "~N~"
)

var (
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("storage: key must be a non-empty string")

	// ErrQuotaExceeded is returned when a write would exceed the store's quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Store is a string-keyed store of JSON-serialisable values.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// Put stores value under key, replacing any previous value.
	Put(key string, value any) error

	// Get returns the decoded value for key. A missing key yields (nil, nil);
	// a stored null also yields nil, use [Has] to tell them apart.
	Get(key string) (any, error)

	// Has reports whether key is present.
	Has(key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all stored keys in lexical order.
	Keys() ([]string, error)
}

// Encode converts a value into its tagged string form.
func Encode(value any) (string, error) {
	if value == nil {
		return nullFlag, nil
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return numberFlag + strconv.Itoa(v), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return numberFlag + fmt.Sprint(v), nil
	case float32:
		return numberFlag + strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return numberFlag + strconv.FormatFloat(v, 'g', -1, 64), nil
	case json.Number:
		return numberFlag + v.String(), nil
	}

	// typed nil pointers, maps and slices are stored as null
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return nullFlag, nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("storage: encode value: %w", err)
	}
	return jsonFlag + string(data), nil
}

// Decode reverses [Encode]. Numbers decode to float64 and JSON documents to
// the generic encoding/json representation. A JSON payload that fails to
// parse is returned as the raw stored string.
func Decode(raw string) any {
	switch {
	case raw == nullFlag:
		return nil
	case strings.HasPrefix(raw, jsonFlag):
		var v any
		if err := json.Unmarshal([]byte(raw[len(jsonFlag):]), &v); err != nil {
			return raw
		}
		return v
	case strings.HasPrefix(raw, numberFlag):
		f, err := strconv.ParseFloat(raw[len(numberFlag):], 64)
		if err != nil {
			return raw
		}
		return f
	default:
		return raw
	}
}

// GetJSON decodes the value stored under key into dst.
//
// It returns false when the key is missing or holds null.
func GetJSON(s Store, key string, dst any) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("storage: re-encode %q: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return true, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
