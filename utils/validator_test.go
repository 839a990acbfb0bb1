package utils

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Password  string `json:"password" validate:"strongpassword"`
	Role      string `json:"role" validate:"user_role"`
	Direction string `json:"direction" validate:"vote_direction"`
	Code      string `json:"code" validate:"otp_code"`
}

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	RegisterCustomValidators(v)

	assert.NoError(t, v.Struct(sampleRequest{Password: "Secret12", Role: "parent", Direction: "down", Code: "004211"}))

	err := v.Struct(sampleRequest{Password: "weak", Role: "guest", Direction: "sideways", Code: "12ab56"})
	if assert.Error(t, err) {
		fields := map[string]string{}
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		assert.Equal(t, map[string]string{
			"password":  "strongpassword",
			"role":      "user_role",
			"direction": "vote_direction",
			"code":      "otp_code",
		}, fields)
	}
}
