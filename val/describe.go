package val

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func describe(fieldErr validator.FieldError) string {
	param := fieldErr.Param()
	isString := fieldErr.Kind() == reflect.String

	switch fieldErr.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if isString {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return "Must be at least " + param
	case "max":
		if isString {
			return fmt.Sprintf("Must be at most %s characters", param)
		}
		return "Must be at most " + param
	case "len":
		if isString {
			return fmt.Sprintf("Must be exactly %s characters", param)
		}
		return fmt.Sprintf("Must have exactly %s items", param)
	case "gte":
		return "Must be greater than or equal to " + param
	case "lte":
		return "Must be less than or equal to " + param
	case "gt":
		return "Must be greater than " + param
	case "lt":
		return "Must be less than " + param
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "email":
		return "Invalid email format"
	case "datetime":
		return "Must be a valid datetime in format: " + param
	case "gtfield":
		return "Must be greater than " + param
	case "ltfield":
		return "Must be less than " + param
	}
	return "Failed validation: " + fieldErr.Tag()
}
