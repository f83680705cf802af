// Package validation checks request structs with go-playground/validator and
// turns the first failure into an apperror carrying the JSON field name.
//
// Custom tags:
//   - username: letters, digits and @ . + - _
//   - notme:    rejects the reserved username "me" (any case)
//   - slug:     letters, digits, hyphen and underscore
//   - pastyear: an int year no later than the current calendar year
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+\-]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// now is swapped in tests that need a fixed calendar year.
var now = time.Now

// Get returns the shared validator instance.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names ("first_name") instead of Go names ("FirstName").
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		mustRegister(v, "username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		mustRegister(v, "notme", func(fl validator.FieldLevel) bool {
			return !IsReservedUsername(fl.Field().String())
		})
		mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
			return slugRe.MatchString(fl.Field().String())
		})
		mustRegister(v, "pastyear", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= int64(now().Year())
		})

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: registering %q: %v", tag, err))
	}
}

// IsReservedUsername reports whether name is the "me" path sentinel.
func IsReservedUsername(name string) bool {
	return strings.EqualFold(name, model.ReservedUsername)
}

// Struct validates s. It returns nil or an *apperror.AppError (ErrValidation)
// for the first failing field.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}
	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max", "lte":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notme":
		return fmt.Sprintf("Username %q is reserved.", model.ReservedUsername)
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "pastyear":
		return "Year cannot be in the future."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "dive":
		return "Invalid item."
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}
