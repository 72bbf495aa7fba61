package model

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Condition gates a field on another field's current value. Field references
// the other field by ID (not field key).
type Condition struct {
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

// IsZero reports whether the condition carries no data at all, which is how
// an empty `{}` or `null` payload decodes.
func (c Condition) IsZero() bool {
	return c.Field == "" && c.Operator == "" && c.Value == ""
}

// UnmarshalJSON accepts null, `{}`, and objects whose values are not strings
// (numbers and booleans are stringified so they compare like user input).
func (c *Condition) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Condition{}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("model: decode condition: %w", err)
	}
	*c = Condition{
		Field:    scalarString(raw["field"]),
		Operator: scalarString(raw["operator"]),
		Value:    scalarString(raw["value"]),
	}
	return nil
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
