package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/tenantcare/auth-service/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names (new_password) instead of Go field names (NewPassword).
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
	validate.RegisterStructValidation(validateEmailOrUsername, PasswordResetRequest{})

	eng := en.New()
	trans, _ = ut.New(eng, eng).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	registerTranslation("password_strength", "{0} must contain at least one uppercase letter and one number")
	registerTranslation("email_or_username", "exactly one of email or username must be provided")
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// validatePasswordStrength applies the same policy the reset flow enforces.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	return domain.ValidatePasswordPolicy(fl.Field().String()) == nil
}

func validateEmailOrUsername(sl validator.StructLevel) {
	r := sl.Current().Interface().(PasswordResetRequest)
	hasEmail := strings.TrimSpace(r.Email) != ""
	hasUsername := strings.TrimSpace(r.Username) != ""

	switch {
	case !hasEmail && !hasUsername:
		sl.ReportError(r.Email, "email", "Email", "email_or_username", "missing")
	case hasEmail && hasUsername:
		sl.ReportError(r.Email, "email", "Email", "email_or_username", "both")
	}
}

// Validate runs the struct's validate tags and converts the first failure into
// the domain error the reset flows would return for the same input.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.ErrInternal(err)
	}
	return toDomainError(ves)
}

func toDomainError(ves validator.ValidationErrors) error {
	// The identifier rule outranks per-field rules.
	for _, fe := range ves {
		if fe.Tag() == "email_or_username" {
			if fe.Param() == "both" {
				return domain.ErrEmailAndUsername()
			}
			return domain.ErrEmailOrUsernameRequired()
		}
	}

	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(fe.Field())
	case "password_strength":
		if err := domain.ValidatePasswordPolicy(fmt.Sprint(fe.Value())); err != nil {
			return err
		}
		return domain.ErrWeakPassword(fe.Translate(trans))
	case "email":
		return domain.ErrInvalidEmailFormat()
	}

	if len(ves) == 1 {
		return domain.ErrInvalidField(fe.Field(), fe.Translate(trans))
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Translate(trans)
	}
	return domain.ErrValidation(fields)
}
