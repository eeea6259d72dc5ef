package services

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordProblem(fl.Field().String()) == ""
	})
	return v
}

type registerInput struct {
	Username string `validate:"required,min=3,max=50,alphanum"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"max=100"`
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	TOTPCode string `validate:"omitempty,len=6,number"`
}

type verifyInput struct {
	UserID int64  `validate:"gt=0"`
	Code   string `validate:"required,len=6,number"`
}

type emailInput struct {
	Email string `validate:"required,email"`
}

type codeInput struct {
	Code string `validate:"required,len=6,number"`
}

type disableTwoFactorInput struct {
	Password string `validate:"required"`
	Code     string `validate:"required,len=6,number"`
}

type profileInput struct {
	Username string `validate:"omitempty,min=3,max=50,alphanum"`
	FullName string `validate:"max=100"`
}

// check validates s and converts the first failure into a ValidationError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("input", err.Error())
	}
	fe := verrs[0]
	return invalid(fieldName(fe.Field()), message(fe))
}

func fieldName(goName string) string {
	switch goName {
	case "UserID":
		return "user_id"
	case "TOTPCode":
		return "totp_code"
	case "FullName":
		return "full_name"
	}
	return strings.ToLower(goName)
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		switch fe.Tag() {
		case "required", "min":
			return "Username must be at least 3 characters"
		case "max":
			return "Username must be at most 50 characters"
		case "alphanum":
			return "Username must be alphanumeric"
		}
	case "Email":
		if fe.Tag() == "required" {
			return "Email is required"
		}
		return "Invalid email address"
	case "Password":
		if fe.Tag() == "password" {
			return passwordProblem(fe.Value().(string))
		}
		return "Password is required"
	case "FullName":
		return "Full name must be at most 100 characters"
	case "UserID":
		return "Invalid request data: user id is missing"
	case "Code", "TOTPCode":
		return "Please enter a valid 6-digit code"
	}
	return fe.Error()
}

// passwordProblem returns the first password policy violation or "".
func passwordProblem(p string) string {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case utf8.RuneCountInString(p) < 8:
		return "Password must be at least 8 characters long"
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}

// SanitizeCode keeps only digits and truncates to six, the way the code
// field of the verification screen behaves.
func SanitizeCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	return b.String()
}
