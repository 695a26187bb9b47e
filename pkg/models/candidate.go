package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Candidate is one profile eligible for swiping. Fields carries the
// backend's presentation data untouched.
type Candidate struct {
	ID     string
	Fields map[string]any
}

// candidateIDKeys lists the keys the backend has used for the profile id
var candidateIDKeys = []string{"id", "user_id", "_id"}

// UnmarshalJSON decodes a recommendation entry, lifting its id out of the
// field bag. Numeric ids are accepted and rendered as strings. An entry
// without an id decodes with an empty ID so one bad entry does not fail
// the whole batch.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("failed to decode candidate: %w", err)
	}

	for _, key := range candidateIDKeys {
		if id := stringify(fields[key]); id != "" {
			c.ID = id
			break
		}
	}
	c.Fields = fields
	return nil
}

// MarshalJSON writes the field bag back out, guaranteeing an "id" key
func (c Candidate) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["id"] = c.ID
	return json.Marshal(out)
}

// String returns a display field, or "" when absent
func (c Candidate) String(key string) string {
	return stringify(c.Fields[key])
}

// Strings returns a list display field (skills, accomplishments, ...)
func (c Candidate) Strings(key string) []string {
	raw, ok := c.Fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch item := v.(type) {
		case map[string]any:
			// project/accomplishment objects render by name or title
			for _, k := range []string{"name", "title", "description"} {
				if s := stringify(item[k]); s != "" {
					out = append(out, s)
					break
				}
			}
		default:
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Name returns the candidate's display name
func (c Candidate) Name() string {
	if n := c.String("name"); n != "" {
		return n
	}
	return c.String("full_name")
}

// Location returns "city, state" or the free-form location field
func (c Candidate) Location() string {
	if loc := c.String("location"); loc != "" {
		return loc
	}
	city, state := c.String("city"), c.String("state")
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
