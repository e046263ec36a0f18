// Package val validates request structs with go-playground/validator and
// reports the failures as a single errx validation error.
//
// Field names in the error follow the json, then query tag of each field, so
// they match what the client sent.
package val

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/code19m/errx"
	"github.com/go-playground/validator/v10"
)

const CodeValidationFailed = "VALIDATION_FAILED"

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var getValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(getTagName)
	return v
})

// ValidateSchema validates the `validate` tags of schema, a struct or a pointer
// to one. Values that are not structs have nothing to validate.
func ValidateSchema(schema any) error {
	err := getValidator().Struct(schema)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errx.Wrap(err, errx.WithCode(CodeValidationFailed), errx.WithType(errx.T_Validation))
	}

	fields := make(errx.M, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldPath(fieldErr)] = describe(fieldErr)
	}

	return errx.New(
		"Validation failed. See fields for details.",
		errx.WithCode(CodeValidationFailed),
		errx.WithType(errx.T_Validation),
		errx.WithFields(fields),
	)
}

// fieldPath drops the root struct name from the namespace: "page_size", "filter.category".
func fieldPath(fieldErr validator.FieldError) string {
	ns := fieldErr.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// getTagName returns the name of a struct field based on its json or query tag,
// falling back to the Go field name.
func getTagName(fld reflect.StructField) string {
	for _, tagName := range []string{"json", "query"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tagName), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}
