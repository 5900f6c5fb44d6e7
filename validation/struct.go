package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/vidpipe/errors"
)

var (
	structValidate *validator.Validate
	once           sync.Once
)

func getStructValidator() *validator.Validate {
	once.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
		structValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return structValidate
}

// Struct validates a request struct using `validate` tags and returns an
// INVALID_INPUT AppError whose details map each failing json field to a message.
func Struct(s any) error {
	err := getStructValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.Validation("validation failed")
	}

	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = describe(e)
	}
	return errors.Validation(errors.FormatFieldErrors(fields)).WithDetail("fields", fields)
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
