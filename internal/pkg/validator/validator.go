package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report form field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		errors[err.Field()] = message(err)
	}
	return errors
}

// Var validates a single value against a tag, e.g. Var(email, "email").
func Var(v interface{}, tag string) bool {
	return validate.Var(v, tag) == nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	case "min":
		return "Ensure this value has at least " + fe.Param() + " characters."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return "Select a valid choice."
	case "len":
		return "Ensure this value has exactly " + fe.Param() + " characters."
	case "datetime":
		return "Enter a valid date."
	case "numeric":
		return "Select a valid choice."
	case "alpha":
		return "Use letters only."
	case "hexcolor":
		return "Enter a valid hex color."
	default:
		return fe.Tag()
	}
}
