package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Place is a read-only projection of a server-side place record.
type Place struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// PlacesResult is the data payload of the getPlaces query.
type PlacesResult struct {
	Places []Place `json:"places"`
}

// ID is an opaque identifier. Servers may send it as a string or a number;
// numbers are kept as their literal text.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("place id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}
