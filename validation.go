package goPhoneAuth

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// inputValidator checks caller-supplied fields before any backend call.
// Rejections wrap ErrInvalidInput and never consume a code attempt.
type inputValidator struct {
	validate *validator.Validate

	phoneTag    string
	nameTag     string
	codeTag     string
	passwordTag string
	emailTag    string
}

func newInputValidator(cfg Config) *inputValidator {
	return &inputValidator{
		validate:    validator.New(),
		phoneTag:    "required,e164",
		nameTag:     "required,max=" + strconv.Itoa(cfg.Input.FullNameMaxLength),
		codeTag:     "required,numeric,len=" + strconv.Itoa(cfg.OTP.CodeLength),
		passwordTag: fmt.Sprintf("required,min=%d,max=%d", cfg.Input.PasswordMinLength, cfg.Input.PasswordMaxLength),
		emailTag:    "omitempty,email",
	}
}

func (v *inputValidator) check(field, value, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, field)
	}
	return nil
}

func (v *inputValidator) phone(phone string) error {
	return v.check("phone", phone, v.phoneTag)
}

func (v *inputValidator) fullName(name string) error {
	return v.check("full_name", name, v.nameTag)
}

func (v *inputValidator) code(code string) error {
	return v.check("code", code, v.codeTag)
}

func (v *inputValidator) password(password string) error {
	return v.check("password", password, v.passwordTag)
}

func (v *inputValidator) email(email string) error {
	return v.check("email", email, v.emailTag)
}
