package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/target/snowdash/internal/errors"
)

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs tag validation and converts the first failure into a
// field-scoped validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid input")
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperrors.ValidationField(field, fmt.Sprintf("%s is required", field))
	case "max":
		return apperrors.ValidationField(field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	default:
		return apperrors.ValidationField(field, fmt.Sprintf("%s is invalid", field))
	}
}
