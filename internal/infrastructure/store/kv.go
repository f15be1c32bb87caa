package store

import "errors"

var ErrEmptyKey = errors.New("storage key must not be empty")

// KV is durable local storage for small JSON blobs keyed by name.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
