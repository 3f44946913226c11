package forms

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"flowform/bizerror"
	"flowform/domain/attachment"
	"flowform/domain/field"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fe.Field+": "+fe.Message)
	}
	return "form validation failed: " + strings.Join(messages, "; ")
}

func (e FieldErrors) Respond() *bizerror.BizErrorDetail {
	return &bizerror.BizErrorDetail{Status: http.StatusBadRequest, Code: "form.validation_failed",
		Message: "form validation failed", Data: []FieldError(e)}
}

// emailPattern is the permissive form-level check, not a full RFC parse.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validator validates and coerces one value set against an ordered field
// schema. It is a pure value: all lookups it needs are captured at build
// time, nothing is read from package state.
type Validator struct {
	fields []field.DynamicField
}

// BuildValidator derives a structural validator from stored field metadata.
func BuildValidator(fields []field.DynamicField) *Validator {
	schema := make([]field.DynamicField, len(fields))
	copy(schema, fields)
	return &Validator{fields: schema}
}

func (v *Validator) Fields() []field.DynamicField {
	return v.fields
}

// Validate returns the coerced value map, or FieldErrors listing every
// failing field. Submitted keys outside the schema are dropped.
func (v *Validator) Validate(values map[string]interface{}) (map[string]interface{}, error) {
	coerced := map[string]interface{}{}
	errs := FieldErrors{}

	for _, f := range v.fields {
		raw, present := values[f.Name]
		if !present || raw == nil {
			raw = DefaultValue(f)
		}

		value, err := validateFieldValue(f, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
			continue
		}
		coerced[f.Name] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return coerced, nil
}

func validateFieldValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	switch f.Type {
	case field.TypeText, field.TypeTextArea:
		return validateTextValue(f, raw)
	case field.TypeDropdown, field.TypeRadio:
		return validateSingleChoiceValue(f, raw)
	case field.TypeNumber:
		return validateNumberValue(f, raw)
	case field.TypeDate, field.TypeTime, field.TypeDatetime:
		return validateDateLikeValue(f, raw)
	case field.TypeCheckbox:
		return validateCheckboxValue(f, raw)
	case field.TypeBoolean:
		return validateBooleanValue(f, raw)
	case field.TypeDocument:
		return validateDocumentValue(f, raw)
	}
	return nil, bizerror.ErrUnsupportedFieldType
}

func validateTextValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	str, err := asString(raw)
	if err != nil {
		return nil, err
	}
	if str == "" {
		if f.IsRequired {
			return nil, fmt.Errorf("value is required")
		}
		return "", nil
	}
	if f.ValidationRules.Email && !emailPattern.MatchString(str) {
		return nil, fmt.Errorf("value is not a valid email address")
	}
	if f.ValidationRules.Pattern != "" {
		pattern, err := regexp.Compile(f.ValidationRules.Pattern)
		if err != nil {
			return nil, bizerror.ErrFieldDefinitionInvalid
		}
		if !pattern.MatchString(str) {
			return nil, fmt.Errorf("value does not match the required pattern")
		}
	}
	return str, nil
}

func validateSingleChoiceValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	str, err := asString(raw)
	if err != nil {
		return nil, err
	}
	if str == "" {
		if f.IsRequired {
			return nil, fmt.Errorf("value is required")
		}
		return "", nil
	}

	values, err := f.ValidateChoiceOptions()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if strings.EqualFold(v, str) {
			return str, nil
		}
	}
	return nil, fmt.Errorf("value %q is not an available option", str)
}

func validateNumberValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	var num float64
	switch value := raw.(type) {
	case nil:
		if f.IsRequired {
			return nil, fmt.Errorf("value is required")
		}
		return nil, nil
	case float64:
		num = value
	case float32:
		num = float64(value)
	case int:
		num = float64(value)
	case int64:
		num = float64(value)
	case string:
		if value == "" {
			if f.IsRequired {
				return nil, fmt.Errorf("value is required")
			}
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", value)
		}
		num = parsed
	default:
		return nil, fmt.Errorf("value of type %T is not a number", raw)
	}

	if f.ValidationRules.Min != nil && num < *f.ValidationRules.Min {
		return nil, fmt.Errorf("value must not be less than %v", *f.ValidationRules.Min)
	}
	if f.ValidationRules.Max != nil && num > *f.ValidationRules.Max {
		return nil, fmt.Errorf("value must not be greater than %v", *f.ValidationRules.Max)
	}
	return num, nil
}

// date-like values travel as caller-formatted strings
func validateDateLikeValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	str, err := asString(raw)
	if err != nil {
		return nil, err
	}
	if str == "" && f.IsRequired {
		return nil, fmt.Errorf("value is required")
	}
	return str, nil
}

func validateCheckboxValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	items, err := asStringSlice(raw)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if f.IsRequired {
			return nil, fmt.Errorf("at least one option must be selected")
		}
		return []string{}, nil
	}

	values, err := f.ValidateChoiceOptions()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		found := false
		for _, v := range values {
			if strings.EqualFold(v, item) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("value %q is not an available option", item)
		}
	}
	return items, nil
}

func validateBooleanValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	switch value := raw.(type) {
	case bool:
		return value, nil
	case string:
		if value == "" {
			return false, nil
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean", value)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("value of type %T is not a boolean", raw)
}

func validateDocumentValue(f field.DynamicField, raw interface{}) (interface{}, error) {
	switch value := raw.(type) {
	case nil:
		if f.IsRequired {
			return nil, fmt.Errorf("a document is required")
		}
		return nil, nil
	case *attachment.FilePayload:
		if value == nil || len(value.Content) == 0 {
			if f.IsRequired {
				return nil, fmt.Errorf("a document is required")
			}
			return nil, nil
		}
		return value, nil
	case string:
		// an existing storage path, or empty meaning cleared
		if value == "" {
			if f.IsRequired {
				return nil, fmt.Errorf("a document is required")
			}
			return nil, nil
		}
		return value, nil
	}
	return nil, fmt.Errorf("value of type %T is not a document", raw)
}

func asString(raw interface{}) (string, error) {
	if raw == nil {
		return "", nil
	}
	str, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value of type %T is not a string", raw)
	}
	return str, nil
}

func asStringSlice(raw interface{}) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return value, nil
	case []interface{}:
		items := make([]string, 0, len(value))
		for _, item := range value {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element of type %T is not a string", item)
			}
			items = append(items, str)
		}
		return items, nil
	}
	return nil, fmt.Errorf("value of type %T is not a string list", raw)
}
