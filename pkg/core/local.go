package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON decodes the value stored under key into dst.
// It reports false when the key is missing.
func GetJSON(ctx context.Context, store LocalStore, key string, dst any) (bool, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: key %q: %v", ErrMalformedLocalData, key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, store LocalStore, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return store.Set(ctx, key, data)
}
