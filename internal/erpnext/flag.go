package erpnext

import (
	"bytes"
	"encoding/json"
)

// Flag is a Frappe "Check" field. The upstream API serializes these as 0/1
// integers; this type accepts both integer and boolean JSON and writes the
// integer form back.
type Flag bool

// Bool returns the flag as a plain bool.
func (f Flag) Bool() bool { return bool(f) }

// MarshalJSON writes the Frappe integer form.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1, true/false, and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "0", "false":
		*f = false
		return nil
	case "1", "true":
		*f = true
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = n != 0
	return nil
}
