package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Count is a whole number of fish, bags or litres as it arrives in a request.
// Forms post every field as text, so both 120 and "120" decode.
type Count int

// Int returns the count as a plain int.
func (c Count) Int() int { return int(c) }

// IntPtr converts an optional count; nil stays nil.
func (c *Count) IntPtr() *int {
	if c == nil {
		return nil
	}
	n := int(*c)
	return &n
}

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("count must be a whole number, got %s", data)
	}
	*c = Count(n)
	return nil
}
