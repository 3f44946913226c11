package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrFieldDefinitionInvalid = errors.New("field definition is invalid")
	ErrUnsupportedFieldType   = errors.New("unsupported field type")
	ErrEmptyComposition       = errors.New("composition must not be empty")
	ErrArchived               = errors.New("archived record is read only")

	ErrUnknownStatus           = errors.New("unknown status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrTaskCompleted           = errors.New("task is completed")
	ErrInstanceNotActive       = errors.New("workflow instance is not active")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}

func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}

func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message}
}
