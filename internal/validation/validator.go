// Package validation checks RPC request structs with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Error collects every failed rule of a request.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Get returns the shared validator. Custom tags:
//   - period: a season selector analysis.ParseSelector accepts
//   - damageunit: a unit analysis.ParseDamageUnit accepts
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("period", func(fl validator.FieldLevel) bool {
			_, err := analysis.ParseSelector(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("damageunit", func(fl validator.FieldLevel) bool {
			_, err := analysis.ParseDamageUnit(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Struct validates s and returns *Error when any rule fails.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: message(fe)}
	}
	return out
}

var messages = map[string]string{
	"required":   "%s is required",
	"period":     "%s must be a known season period such as 20-1",
	"damageunit": "%s must be raw or billions",
	"url":        "%s must be a valid URL",
}

var messagesWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func message(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := messagesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
