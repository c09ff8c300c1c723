package store

import (
	"encoding/json"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
)

// marshalObject converts a core.Object to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalObject(obj core.Object) (string, error) {
	data, err := core.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT back into a core.Object.
// Uses core.Object.UnmarshalJSON which handles large integers via
// json.Number to avoid float64 precision loss for values > 2^53.
func unmarshalObject(data string) (core.Object, error) {
	if data == "" || data == "{}" {
		return core.Object{}, nil
	}
	var obj core.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}
