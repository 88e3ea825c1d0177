package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func msgForTag(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if param != "" {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return "Value is too short"
	case "max":
		if param != "" {
			return fmt.Sprintf("Must not exceed %s characters", param)
		}
		return "Value is too long"
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", param)
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", param)
	case "url", "http_url":
		return "Invalid URL format"
	case "alphanum":
		return "Value must contain only letters and numbers"
	default:
		return "Invalid value"
	}
}

// jsonFieldPath maps a validator namespace such as "SubmitRequest.Keywords[2]"
// onto the JSON name of the top-level field.
func jsonFieldPath(structType reflect.Type, fe validator.FieldError) string {
	name := fe.StructField()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if structType == nil {
		return fe.Field()
	}

	field, found := structType.FieldByName(name)
	if !found {
		return fe.Field()
	}

	jsonTag := field.Tag.Get("json")
	if jsonTag == "" || jsonTag == "-" {
		return fe.Field()
	}

	return strings.Split(jsonTag, ",")[0]
}

// FormatValidationErrors flattens binding errors into field/message pairs that
// are safe to return to callers.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	var errorsList []ValidationErrorResponse

	if err == nil {
		return errorsList
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorsList
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	errorsList = make([]ValidationErrorResponse, len(validationErrors))
	for i, fe := range validationErrors {
		errorsList[i] = ValidationErrorResponse{
			Field:   jsonFieldPath(structType, fe),
			Message: msgForTag(fe),
		}
	}

	return errorsList
}

// IsValidationError reports whether err came from struct validation rather than
// from decoding the body.
func IsValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
