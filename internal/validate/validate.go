// Package validate checks submitted forms before anything reaches the
// remote API.  Failures are reported per field and never leave the
// storefront.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// bdPhone matches an 11-digit Bangladeshi mobile number.
var bdPhone = regexp.MustCompile(`^01[3-9]\d{8}$`)

// ValidPhone reports whether s is a Bangladeshi mobile number.
func ValidPhone(s string) bool { return bdPhone.MatchString(s) }

// Errors maps a field name (as it appears in the form JSON) to a message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	v           *validator.Validate
	passwordLen int
}

// New builds a Validator.  passwordLen is the exact number of characters a
// login or registration password must have.
func New(passwordLen int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("bdphone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("pwlen", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) == passwordLen
	})
	return &Validator{v: v, passwordLen: passwordLen}
}

// PasswordLength is the exact length login and registration passwords need.
func (x *Validator) PasswordLength() int { return x.passwordLen }

// Check validates a form struct.  It returns nil or an Errors value.
func (x *Validator) Check(form any) error {
	err := x.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := Errors{}
	for _, fe := range verrs {
		key := fieldKey(fe.Namespace())
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = x.message(fe)
	}
	return out
}

// fieldKey drops the struct name from a namespace such as
// "ServiceForm.options[0].name".
func fieldKey(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func (x *Validator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "required_with":
		return fe.Field() + " is required to change the password"
	case "email":
		return "enter a valid email address"
	case "bdphone":
		return "enter a valid Bangladeshi mobile number"
	case "pwlen":
		return fmt.Sprintf("password must be exactly %d characters", x.passwordLen)
	case "eqfield":
		return "passwords do not match"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s cannot be less than %s", fe.Field(), fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at least %s %s required", fe.Param(), fe.Field())
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
