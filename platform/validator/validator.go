// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator that reports fields by their json names.
// Domain-specific validation rules can be registered using RegisterValidation.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// FieldErrors converts a validation failure into a field name to message map.
// It returns nil when err is not a validator.ValidationErrors.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, exists := out[field]; exists {
			continue
		}
		out[field] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "Ingresa un correo electrónico válido"
	case "min":
		return fmt.Sprintf("Debe tener al menos %s caracteres", fe.Param())
	case "max":
		return fmt.Sprintf("Debe tener como máximo %s caracteres", fe.Param())
	case "oneof":
		return fmt.Sprintf("Debe ser uno de: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "phone":
		return "Ingresa un número de WhatsApp válido"
	default:
		return "Valor inválido"
	}
}
