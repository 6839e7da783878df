package forest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ErrCorrupt reports that a forest artifact existed but could not be parsed.
// Decode still returns a usable empty forest alongside it; callers decide
// how loudly to flag the corruption.
var ErrCorrupt = fmt.Errorf("forest data corrupt")

// Encode serializes a forest to pretty-printed JSON. The output is
// deterministic and human-diffable, which is what ends up on disk.
func Encode(f Forest) ([]byte, error) {
	if f == nil {
		f = Forest{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a durable forest representation. Missing or empty input is
// a valid empty forest. Malformed input also decodes to an empty forest but
// returns an error wrapping ErrCorrupt so the caller can log it.
func Decode(raw []byte) (Forest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Forest{}, nil
	}
	var f Forest
	if err := json.Unmarshal(raw, &f); err != nil {
		return Forest{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f == nil {
		f = Forest{}
	}
	return f, nil
}
