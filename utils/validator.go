package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

func ValidateStrongPassword(fl validator.FieldLevel) bool {
	return CheckPasswordStrength(fl.Field().String()) == nil
}

func ValidateUserRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "student", "teacher", "parent", "admin":
		return true
	}
	return false
}

func ValidateQuestionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "mcq", "multiple_select", "coding", "descriptive":
		return true
	}
	return false
}

func ValidateVoteDirection(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "up", "down":
		return true
	}
	return false
}

func ValidateOTPCode(fl validator.FieldLevel) bool {
	return otpCodePattern.MatchString(fl.Field().String())
}

// RegisterCustomValidators adds the project tags and reports field names by
// their json key.
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("strongpassword", ValidateStrongPassword)
	validate.RegisterValidation("user_role", ValidateUserRole)
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("vote_direction", ValidateVoteDirection)
	validate.RegisterValidation("otp_code", ValidateOTPCode)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
}

// NewValidator returns a validator reading the same `binding` tags gin uses,
// so services can check requests that did not come through a handler.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.SetTagName("binding")
	RegisterCustomValidators(validate)
	return validate
}

// RegisterGinValidators installs the custom tags on gin's binding engine.
func RegisterGinValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterCustomValidators(v)
	}
}
