package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/pkg/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type profileInput struct {
	Name  string `validate:"required,max=64"`
	Email string `validate:"required,email,max=255"`
}

var fieldMessages = map[string]string{
	"Name.required":  "please tell us your name",
	"Name.max":       "name must be at most 64 characters",
	"Email.required": "please provide your email",
	"Email.email":    "please provide a valid email",
	"Email.max":      "email is too long",
}

func validateProfile(name, email string) error {
	err := validate.Struct(profileInput{Name: name, Email: email})
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		if msg, ok := fieldMessages[ves[0].Field()+"."+ves[0].Tag()]; ok {
			return errs.Validation(msg)
		}
	}
	return errs.Validation("invalid input")
}

func validatePassword(pw string) error {
	if err := utils.CheckPasswordPolicy(pw); err != nil {
		return errs.Validation(err.Error())
	}
	return nil
}
