package forms_test

import (
	"testing"

	"flowform/domain/attachment"
	"flowform/domain/field"
	"flowform/domain/forms"

	. "github.com/onsi/gomega"
)

func textField(name string, required bool) field.DynamicField {
	return field.DynamicField{Name: name, Label: name, Type: field.TypeText, IsRequired: required}
}

func choiceField(name string, fieldType field.FieldType, required bool, options ...string) field.DynamicField {
	opts := field.FieldOptions{}
	for _, o := range options {
		opts = append(opts, field.Option{Value: o, Label: o})
	}
	return field.DynamicField{Name: name, Label: name, Type: fieldType, IsRequired: required, Options: opts}
}

func TestValidateTextValues(t *testing.T) {
	RegisterTestingT(t)

	t.Run("required text should reject empty string and accept any non-empty string", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{textField("title", true)})

		_, err := v.Validate(map[string]interface{}{"title": ""})
		fieldErrs, ok := err.(forms.FieldErrors)
		Expect(ok).To(BeTrue())
		Expect(len(fieldErrs)).To(Equal(1))
		Expect(fieldErrs[0].Field).To(Equal("title"))

		values, err := v.Validate(map[string]interface{}{"title": "x"})
		Expect(err).To(BeNil())
		Expect(values["title"]).To(Equal("x"))
	})

	t.Run("optional text should pass through empty values", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{textField("title", false)})
		values, err := v.Validate(map[string]interface{}{})
		Expect(err).To(BeNil())
		Expect(values["title"]).To(Equal(""))
	})

	t.Run("email rule should be enforced on non-empty values", func(t *testing.T) {
		f := textField("mail", false)
		f.ValidationRules.Email = true
		v := forms.BuildValidator([]field.DynamicField{f})

		_, err := v.Validate(map[string]interface{}{"mail": "not-an-email"})
		Expect(err).ToNot(BeNil())

		values, err := v.Validate(map[string]interface{}{"mail": "someone@example.com"})
		Expect(err).To(BeNil())
		Expect(values["mail"]).To(Equal("someone@example.com"))

		_, err = v.Validate(map[string]interface{}{"mail": ""})
		Expect(err).To(BeNil())
	})

	t.Run("pattern rule should be enforced on non-empty values", func(t *testing.T) {
		f := textField("code", false)
		f.ValidationRules.Pattern = "^[A-Z]{3}[0-9]+$"
		v := forms.BuildValidator([]field.DynamicField{f})

		_, err := v.Validate(map[string]interface{}{"code": "abc1"})
		Expect(err).ToNot(BeNil())

		values, err := v.Validate(map[string]interface{}{"code": "ABC1"})
		Expect(err).To(BeNil())
		Expect(values["code"]).To(Equal("ABC1"))
	})
}

func TestValidateNumberValues(t *testing.T) {
	RegisterTestingT(t)

	t.Run("numbers should be coerced from strings and checked against min/max", func(t *testing.T) {
		min, max := 1.0, 10.0
		f := field.DynamicField{Name: "amount", Label: "amount", Type: field.TypeNumber,
			ValidationRules: field.ValidationRules{Min: &min, Max: &max}}
		v := forms.BuildValidator([]field.DynamicField{f})

		values, err := v.Validate(map[string]interface{}{"amount": "5"})
		Expect(err).To(BeNil())
		Expect(values["amount"]).To(Equal(5.0))

		values, err = v.Validate(map[string]interface{}{"amount": 7.5})
		Expect(err).To(BeNil())
		Expect(values["amount"]).To(Equal(7.5))

		_, err = v.Validate(map[string]interface{}{"amount": "0.5"})
		Expect(err).ToNot(BeNil())
		_, err = v.Validate(map[string]interface{}{"amount": 11})
		Expect(err).ToNot(BeNil())
		_, err = v.Validate(map[string]interface{}{"amount": "five"})
		Expect(err).ToNot(BeNil())
	})

	t.Run("required number should reject absent value", func(t *testing.T) {
		f := field.DynamicField{Name: "amount", Label: "amount", Type: field.TypeNumber, IsRequired: true}
		v := forms.BuildValidator([]field.DynamicField{f})
		_, err := v.Validate(map[string]interface{}{})
		Expect(err).ToNot(BeNil())
	})
}

func TestValidateChoiceValues(t *testing.T) {
	RegisterTestingT(t)

	t.Run("dropdown and radio should validate option membership", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{
			choiceField("color", field.TypeDropdown, false, "red", "green"),
			choiceField("size", field.TypeRadio, false, "S", "M", "L"),
		})

		values, err := v.Validate(map[string]interface{}{"color": "red", "size": "M"})
		Expect(err).To(BeNil())
		Expect(values["color"]).To(Equal("red"))

		_, err = v.Validate(map[string]interface{}{"color": "blue"})
		Expect(err).ToNot(BeNil())
	})

	t.Run("required checkbox should fail on empty array and pass on one element", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{
			choiceField("tags", field.TypeCheckbox, true, "a", "b", "c"),
		})

		_, err := v.Validate(map[string]interface{}{"tags": []string{}})
		Expect(err).ToNot(BeNil())

		values, err := v.Validate(map[string]interface{}{"tags": []string{"a"}})
		Expect(err).To(BeNil())
		Expect(values["tags"]).To(Equal([]string{"a"}))
	})

	t.Run("checkbox should accept json-decoded interface slices and reject unknown options", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{
			choiceField("tags", field.TypeCheckbox, false, "a", "b"),
		})

		values, err := v.Validate(map[string]interface{}{"tags": []interface{}{"a", "b"}})
		Expect(err).To(BeNil())
		Expect(values["tags"]).To(Equal([]string{"a", "b"}))

		_, err = v.Validate(map[string]interface{}{"tags": []interface{}{"z"}})
		Expect(err).ToNot(BeNil())
	})
}

func TestValidateBooleanAndDocumentValues(t *testing.T) {
	RegisterTestingT(t)

	t.Run("boolean should accept bools and parse strings", func(t *testing.T) {
		f := field.DynamicField{Name: "flag", Label: "flag", Type: field.TypeBoolean}
		v := forms.BuildValidator([]field.DynamicField{f})

		values, err := v.Validate(map[string]interface{}{"flag": true})
		Expect(err).To(BeNil())
		Expect(values["flag"]).To(Equal(true))

		values, err = v.Validate(map[string]interface{}{"flag": "true"})
		Expect(err).To(BeNil())
		Expect(values["flag"]).To(Equal(true))

		_, err = v.Validate(map[string]interface{}{"flag": "maybe"})
		Expect(err).ToNot(BeNil())
	})

	t.Run("document should accept payloads, stored paths and nil", func(t *testing.T) {
		f := field.DynamicField{Name: "doc", Label: "doc", Type: field.TypeDocument}
		v := forms.BuildValidator([]field.DynamicField{f})

		payload := &attachment.FilePayload{FileName: "a.png", Content: []byte{1}}
		values, err := v.Validate(map[string]interface{}{"doc": payload})
		Expect(err).To(BeNil())
		Expect(values["doc"]).To(Equal(payload))

		values, err = v.Validate(map[string]interface{}{"doc": "attachments/tasks/1/doc/a.png"})
		Expect(err).To(BeNil())
		Expect(values["doc"]).To(Equal("attachments/tasks/1/doc/a.png"))

		values, err = v.Validate(map[string]interface{}{})
		Expect(err).To(BeNil())
		Expect(values["doc"]).To(BeNil())
	})

	t.Run("required document should reject nil and empty payloads", func(t *testing.T) {
		f := field.DynamicField{Name: "doc", Label: "doc", Type: field.TypeDocument, IsRequired: true}
		v := forms.BuildValidator([]field.DynamicField{f})

		_, err := v.Validate(map[string]interface{}{})
		Expect(err).ToNot(BeNil())

		_, err = v.Validate(map[string]interface{}{"doc": &attachment.FilePayload{FileName: "a"}})
		Expect(err).ToNot(BeNil())
	})
}

func TestDefaultValues(t *testing.T) {
	RegisterTestingT(t)

	t.Run("absent values fall back to per-kind defaults", func(t *testing.T) {
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeBoolean})).To(Equal(false))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeCheckbox})).To(Equal([]string{}))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeDocument})).To(BeNil())
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeNumber})).To(BeNil())
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeText})).To(Equal(""))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeDate})).To(Equal(""))
	})

	t.Run("configured defaults are coerced per kind", func(t *testing.T) {
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeBoolean, DefaultValue: "true"})).To(Equal(true))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeCheckbox, DefaultValue: "a, b"})).To(Equal([]string{"a", "b"}))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeNumber, DefaultValue: "4.5"})).To(Equal(4.5))
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeText, DefaultValue: "hello"})).To(Equal("hello"))
		// a document never defaults to a stored object
		Expect(forms.DefaultValue(field.DynamicField{Type: field.TypeDocument, DefaultValue: "x"})).To(BeNil())
	})

	t.Run("validator applies defaults for absent keys", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{
			{Name: "flag", Label: "flag", Type: field.TypeBoolean},
			{Name: "title", Label: "title", Type: field.TypeText, DefaultValue: "untitled"},
		})
		values, err := v.Validate(map[string]interface{}{})
		Expect(err).To(BeNil())
		Expect(values["flag"]).To(Equal(false))
		Expect(values["title"]).To(Equal("untitled"))
	})

	t.Run("keys outside the schema are dropped", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{textField("title", false)})
		values, err := v.Validate(map[string]interface{}{"title": "a", "rogue": "b"})
		Expect(err).To(BeNil())
		_, present := values["rogue"]
		Expect(present).To(BeFalse())
	})

	t.Run("all failing fields are reported together", func(t *testing.T) {
		v := forms.BuildValidator([]field.DynamicField{
			textField("a", true),
			textField("b", true),
		})
		_, err := v.Validate(map[string]interface{}{})
		fieldErrs, ok := err.(forms.FieldErrors)
		Expect(ok).To(BeTrue())
		Expect(len(fieldErrs)).To(Equal(2))
	})
}
