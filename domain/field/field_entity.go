package field

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"flowform/bizerror"

	"github.com/fundwit/go-commons/types"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextArea FieldType = "textarea"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeTime     FieldType = "time"
	TypeDatetime FieldType = "datetime"
	TypeDocument FieldType = "document"
	TypeDropdown FieldType = "dropdown"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeBoolean  FieldType = "boolean"
)

// IsChoice reports whether the type carries a configured option list.
func (t FieldType) IsChoice() bool {
	return t == TypeDropdown || t == TypeCheckbox || t == TypeRadio
}

func (t FieldType) IsDateLike() bool {
	return t == TypeDate || t == TypeTime || t == TypeDatetime
}

type DynamicField struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name  string    `json:"name" binding:"required,lte=64" gorm:"unique_index:uni_field_name"`
	Label string    `json:"label" binding:"required,lte=255"`
	Type  FieldType `json:"type" binding:"required,oneof=text textarea number date time datetime document dropdown checkbox radio boolean"`

	Category        string          `json:"category"`
	ValidationRules ValidationRules `json:"validationRules" sql:"type:VARCHAR(1024)"`
	IsRequired      bool            `json:"isRequired"`
	DefaultValue    string          `json:"defaultValue"`
	Options         FieldOptions    `json:"options" sql:"type:VARCHAR(2048)"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *DynamicField) TableName() string {
	return "dynamic_fields"
}

type ValidationRules struct {
	Pattern string   `json:"pattern,omitempty"`
	Email   bool     `json:"email,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FieldOptions []Option

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks the structural invariants of a field definition.
func (f DynamicField) Validate() error {
	if !fieldNamePattern.MatchString(f.Name) {
		return bizerror.ErrFieldDefinitionInvalid
	}

	if f.Type.IsChoice() {
		if _, err := f.ValidateChoiceOptions(); err != nil {
			return err
		}
	}

	if f.ValidationRules.Pattern != "" {
		if _, err := regexp.Compile(f.ValidationRules.Pattern); err != nil {
			return bizerror.ErrFieldDefinitionInvalid
		}
	}
	if f.ValidationRules.Min != nil && f.ValidationRules.Max != nil &&
		*f.ValidationRules.Min > *f.ValidationRules.Max {
		return bizerror.ErrFieldDefinitionInvalid
	}
	return nil
}

// ValidateChoiceOptions requires a non-empty option list with unique,
// trimmed, non-empty values.
func (f DynamicField) ValidateChoiceOptions() ([]string, error) {
	if len(f.Options) == 0 {
		return nil, bizerror.ErrFieldDefinitionInvalid
	}

	values := make([]string, 0, len(f.Options))
	uniSet := map[string]bool{}
	for _, item := range f.Options {
		if len(item.Value) == 0 || strings.TrimSpace(item.Value) != item.Value {
			return nil, bizerror.ErrFieldDefinitionInvalid
		}
		if uniSet[strings.ToLower(item.Value)] {
			return nil, bizerror.ErrFieldDefinitionInvalid
		}
		uniSet[strings.ToLower(item.Value)] = true
		values = append(values, item.Value)
	}
	return values, nil
}

func (t FieldOptions) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *FieldOptions) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

func (t ValidationRules) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *ValidationRules) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

func scanJSONColumn(v interface{}, target interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), target)
}
