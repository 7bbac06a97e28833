package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct checks s against its `validate` tags and reports
// the first failing field as a *ValidationError.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "email":
		message = "must be a valid email address"
	case "min":
		if fe.Param() == "1" {
			message = "must not be empty"
		} else {
			message = fmt.Sprintf("must be at least %s characters", fe.Param())
		}
	case "max":
		message = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		message = fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		message = "is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: message}
}

// trimPtr returns a trimmed copy of s and keeps nil as nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
