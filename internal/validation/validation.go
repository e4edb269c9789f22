// Package validation wraps go-playground/validator behind a single
// schema-check call that reports field-scoped, human-readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yourorg/taskboard/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their json names so error keys match payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return v
}

// Check validates a struct against its schema tags. It returns nil when the
// value is valid, otherwise a ValidationError carrying one or more messages
// per offending field.
func Check(s interface{}) *domain.ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError("body", "Invalid data.")
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}

	return &domain.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required", "required_without_all":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("The %s must not be greater than %s characters.", label, fe.Param())
	case "uuid4":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s is invalid.", label)
	}
}
