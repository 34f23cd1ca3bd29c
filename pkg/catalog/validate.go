package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input bounds shared by the MCP and HTTP surfaces.
const (
	MaxPatternLen = 200
	MaxTagLen     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// cleanText trims s and checks it against 1..maxLen characters.
func cleanText(param, s string, maxLen int) (string, error) {
	cleaned := strings.TrimSpace(s)
	tag := fmt.Sprintf("required,notblank,max=%d", maxLen)
	if err := validate.Var(cleaned, tag); err != nil {
		return "", toValidationError(param, s, maxLen, err)
	}
	return cleaned, nil
}

// checkID rejects zero and negative identifiers.
func checkID(param string, id int64) error {
	if err := validate.Var(id, "gt=0"); err != nil {
		return &ValidationError{
			Parameter: param,
			Value:     strconv.FormatInt(id, 10),
			Message:   param + " must be a positive integer",
		}
	}
	return nil
}

func toValidationError(param, value string, maxLen int, err error) error {
	ve := &ValidationError{Parameter: param, Value: value}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		ve.Message = err.Error()
		return ve
	}

	switch fieldErrs[0].Tag() {
	case "max":
		ve.Message = fmt.Sprintf("length (%d) exceeds maximum allowed length (%d)",
			len([]rune(strings.TrimSpace(value))), maxLen)
	default:
		ve.Message = "cannot be empty or whitespace"
	}
	return ve
}
