package apperrors

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// FromBinding converts a binding error into ValidationErrors, or a single
// validation error when the body could not be decoded at all.
func FromBinding(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return out
	}
	return Validation("", "invalid request body: "+err.Error())
}

// Details returns per-field errors for the response body, if any.
func Details(err error) []FieldError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Field != "" {
		return []FieldError{{Field: appErr.Field, Message: appErr.Message}}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "numeric":
		return "must be a number"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	case "strongpassword":
		return "must be at least 8 characters with an uppercase letter and a digit"
	case "user_role":
		return "must be one of student, teacher, parent, admin"
	case "question_type":
		return "must be one of mcq, multiple_select, coding, descriptive"
	case "vote_direction":
		return "must be up or down"
	case "otp_code":
		return "must be a 6 digit code"
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}
