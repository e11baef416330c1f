// Package validator adapts go-playground/validator to echo's Validator
// interface so bound request payloads, settings updates in particular, get
// their struct tags checked before a handler sees them.
package validator

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator validates bound request payloads against their struct tags.
type RequestValidator struct {
	validate *validator.Validate
}

// New creates a RequestValidator ready to hang on echo.Echo.Validator.
func New() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}
