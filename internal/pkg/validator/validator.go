package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("listing_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "sale", "rent", "short_stay":
			return true
		}
		return false
	})

	// ISO 4217 style, upper case
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		c := fl.Field().String()
		if len(c) != 3 {
			return false
		}
		return strings.ToUpper(c) == c
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "uuid":
			errors[field] = "Invalid identifier"
		case "listing_type":
			errors[field] = "Invalid listing type. Must be: sale, rent, or short_stay"
		case "currency":
			errors[field] = "Invalid currency code"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
