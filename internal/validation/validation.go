// Package validation checks registration payloads before anything touches
// storage.
//
// Rules are evaluated per field with github.com/go-playground/validator.
// A missing required field reports only "X is required"; otherwise every rule
// for the field is evaluated so the caller sees all password problems at once.
package validation

import (
	"regexp"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/model"
)

// Messages returned to clients. Tests and API consumers match on these.
const (
	MsgFullNameRequired  = "Full name is required"
	MsgEmailRequired     = "Email is required"
	MsgEmailInvalid      = "Invalid email format"
	MsgPasswordRequired  = "Password is required"
	MsgPasswordLength    = "Password must be between 8 and 64 characters"
	MsgPasswordDigit     = "Password must contain at least one digit"
	MsgPasswordLowercase = "Password must contain at least one lowercase letter"
	MsgPasswordUppercase = "Password must contain at least one uppercase letter"
	MsgCreatedAtInvalid  = "Invalid created date format"
	MsgUserTypeRequired  = "User type is required"
	MsgUserTypeInvalid   = "User type must be one of: student, teacher, parent, private tutor"
)

// canonicalTimestamp matches YYYY-MM-DD HH:MM:SS with a 1900-2099 year.
var canonicalTimestamp = regexp.MustCompile(
	`^(19|20)\d{2}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01]) ([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`,
)

type rule struct {
	tag     string
	message string
}

type fieldRules struct {
	field    string
	value    string
	optional bool
	required string // message when the value is empty; "" for optional fields
	rules    []rule
}

// Validator wraps a configured go-playground validator instance.
// It is safe for concurrent use.
type Validator struct {
	v *playground.Validate
}

// New creates a Validator with the custom tags registered.
func New() *Validator {
	v := playground.New()
	// RegisterValidation only fails on an empty tag or nil func.
	_ = v.RegisterValidation("canonical_time", func(fl playground.FieldLevel) bool {
		return IsCanonicalTimestamp(fl.Field().String())
	})
	_ = v.RegisterValidation("user_type", func(fl playground.FieldLevel) bool {
		_, ok := model.ParseUserType(fl.Field().String())
		return ok
	})
	return &Validator{v: v}
}

// ValidateCreateUser checks a registration payload.
//
// It returns nil when the payload is acceptable, otherwise an
// *apperror.AppError of kind Validation whose Details list every problem in
// field order and whose Message joins them with ". ".
func (val *Validator) ValidateCreateUser(in model.CreateUserInput) error {
	fields := []fieldRules{
		{
			field:    "fullName",
			value:    in.FullName,
			required: MsgFullNameRequired,
		},
		{
			field:    "email",
			value:    in.Email,
			required: MsgEmailRequired,
			rules:    []rule{{"email", MsgEmailInvalid}},
		},
		{
			field:    "password",
			value:    in.Password,
			required: MsgPasswordRequired,
			rules: []rule{
				{"min=8,max=64", MsgPasswordLength},
				{"containsany=0123456789", MsgPasswordDigit},
				{"containsany=abcdefghijklmnopqrstuvwxyz", MsgPasswordLowercase},
				{"containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ", MsgPasswordUppercase},
			},
		},
		{
			field:    "createdAt",
			value:    in.CreatedAt,
			optional: true,
			rules:    []rule{{"canonical_time", MsgCreatedAtInvalid}},
		},
		{
			field:    "userType",
			value:    in.UserType,
			required: MsgUserTypeRequired,
			rules:    []rule{{"user_type", MsgUserTypeInvalid}},
		},
	}

	var details []apperror.FieldError
	for _, f := range fields {
		details = append(details, val.check(f)...)
	}
	return toError(details)
}

// ValidateLogin checks that both credentials are present.
func (val *Validator) ValidateLogin(in model.LoginInput) error {
	var details []apperror.FieldError
	details = append(details, val.check(fieldRules{field: "email", value: in.Email, required: MsgEmailRequired})...)
	details = append(details, val.check(fieldRules{field: "password", value: in.Password, required: MsgPasswordRequired})...)
	return toError(details)
}

func (val *Validator) check(f fieldRules) []apperror.FieldError {
	if f.value == "" {
		if f.optional {
			return nil
		}
		return []apperror.FieldError{{Field: f.field, Message: f.required}}
	}

	var out []apperror.FieldError
	for _, r := range f.rules {
		if err := val.v.Var(f.value, r.tag); err != nil {
			out = append(out, apperror.FieldError{Field: f.field, Message: r.message})
		}
	}
	return out
}

func toError(details []apperror.FieldError) error {
	if len(details) == 0 {
		return nil
	}
	msgs := make([]string, len(details))
	for i, d := range details {
		msgs[i] = d.Message
	}
	return apperror.Validation(strings.Join(msgs, ". "), details...)
}

// IsCanonicalTimestamp reports whether s is in the canonical
// YYYY-MM-DD HH:MM:SS format and names a real calendar instant.
func IsCanonicalTimestamp(s string) bool {
	if !canonicalTimestamp.MatchString(s) {
		return false
	}
	_, err := time.Parse(model.TimestampLayout, s)
	return err == nil
}
