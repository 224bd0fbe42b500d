package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/task-manager/internal/auth"
	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateInput checks struct tags and reports the first failing field as
// a VALIDATION_FAILED error.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewInternalError(err)
	}
	fe := fieldErrs[0]
	return apperrors.NewValidationError(fe.Field(), validationReason(fe))
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// validatePassword enforces the length bounds of a new password. The upper
// bound is in bytes because that is what bcrypt limits.
func validatePassword(password string) error {
	if err := validateInput(passwordInput{Password: password}); err != nil {
		return err
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperrors.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

func validateStatus(status domain.TaskStatus) error {
	if !status.Valid() {
		return apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return nil
}

func validatePriority(priority domain.TaskPriority) error {
	if !priority.Valid() {
		return apperrors.NewValidationError("priority", fmt.Sprintf("unknown priority %q", priority))
	}
	return nil
}

func validateRole(role domain.UserRole) error {
	if !role.Valid() {
		return apperrors.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	return nil
}
