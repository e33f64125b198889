package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexUint64 is an id or revision sent either as a JSON number or as a
// numeric string. Clients holding 64-bit revisions in JavaScript send strings.
type FlexUint64 uint64

// UnmarshalJSON implements the json.Unmarshaler interface. null leaves the
// value untouched.
func (f *FlexUint64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return NewError(KindInvalidInput, raw, "invalid number: %v", err)
		}
		raw = strings.TrimSpace(s)
	}

	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return NewError(KindInvalidInput, raw, "expected a non-negative integer")
	}
	*f = FlexUint64(val)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(f))
}

// Uint64 converts FlexUint64 back to uint64.
func (f FlexUint64) Uint64() uint64 {
	return uint64(f)
}
