package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
)

type commandValidator struct {
	v *validator.Validate
}

func newCommandValidator() *commandValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Decimals are validated by sign so that required,gt=0 work on money fields
	// without a float conversion
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.Sign()
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their wire names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &commandValidator{v: v}
}

// check validates cmd and turns failures into an invalid-command InputError.
func (cv *commandValidator) check(cmd any) error {
	err := cv.v.Struct(cmd)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return reject(core.ReasonInvalidCommand, "%s", allErrorMessages(validationErrors))
	}
	return reject(core.ReasonInvalidCommand, "%v", err)
}

func allErrorMessages(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		messages = append(messages, fmt.Sprintf("'%s': %s", fe.Field(), fieldMessage(fe)))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "alphanum":
		return "must contain only letters and digits"
	case "numeric":
		return "must contain only digits"
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// checkMoney rejects amounts that are not positive or carry more than fen precision.
func checkMoney(field string, d decimal.Decimal) error {
	if !core.IsPositiveMoney(d) {
		return reject(core.ReasonInvalidAmount, "%s %s must be positive with at most 2 decimal places", field, d)
	}
	return nil
}
