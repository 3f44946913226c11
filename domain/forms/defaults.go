package forms

import (
	"strconv"
	"strings"

	"flowform/domain/field"
)

// DefaultValue resolves the value an absent submission falls back to,
// coerced per field kind. Documents always default to nil whatever the
// configured default says.
func DefaultValue(f field.DynamicField) interface{} {
	switch f.Type {
	case field.TypeBoolean:
		if f.DefaultValue == "" {
			return false
		}
		parsed, err := strconv.ParseBool(f.DefaultValue)
		if err != nil {
			return false
		}
		return parsed
	case field.TypeCheckbox:
		if f.DefaultValue == "" {
			return []string{}
		}
		items := []string{}
		for _, item := range strings.Split(f.DefaultValue, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return items
	case field.TypeDocument:
		return nil
	case field.TypeNumber:
		if f.DefaultValue == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(f.DefaultValue, 64)
		if err != nil {
			return nil
		}
		return parsed
	}
	return f.DefaultValue
}
