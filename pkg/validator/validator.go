package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return missingPasswordClasses(fl.Field().String()) == nil
	})
	return v
}

// Struct validates s by its `validate` tags and returns one message per
// failing field.
func Struct(s any) ValidationErrors {
	errs := make(ValidationErrors)
	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe, fe.Field()))
	}
	return errs
}

// Var validates a single value against a tag such as "required,max=64".
func Var(field string, value any, tag string) ValidationErrors {
	errs := make(ValidationErrors)
	if err := validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			errs.Add(field, message(fieldErrs[0], field))
		} else {
			errs.Add(field, err.Error())
		}
	}
	return errs
}

func message(fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "username":
		return "Username must be 3-50 characters of letters, numbers, _ and -"
	case "password":
		return passwordMessage(fe.Value().(string))
	case "dive", "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func passwordMessage(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters"
	}
	return fmt.Sprintf("Password must contain at least %s", strings.Join(missingPasswordClasses(password), ", "))
}

func missingPasswordClasses(password string) []string {
	if len(password) < 8 {
		return []string{"8 characters"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	var missing []string
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}
	return missing
}
