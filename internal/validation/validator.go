package validation

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"barakahit/internal/domain"
	apperrors "barakahit/pkg/errors"
)

// emailShape is local@domain with a dot in the domain and no whitespace or extra '@'.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// submission is the normalized form that the struct tags are checked against.
type submission struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,mailshape"`
	Phone   string
	Message string `validate:"required"`
}

// Validator checks contact forms before anything is persisted.
type Validator struct {
	v      *validator.Validate
	domain DomainVerifier
}

// New creates a Validator. verifier may be nil to skip domain verification.
func New(verifier DomainVerifier) *Validator {
	v := validator.New()
	// The registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("mailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return &Validator{v: v, domain: verifier}
}

// Validate normalizes form and checks it. The returned submission has trimmed
// fields, a lower-cased email and an empty phone when none was given.
func (val *Validator) Validate(ctx context.Context, form domain.ContactForm) (*domain.ContactSubmission, error) {
	s := submission{
		Name:    trimmed(form.Name),
		Email:   strings.ToLower(trimmed(form.Email)),
		Phone:   trimmed(form.Phone),
		Message: trimmed(form.Message),
	}

	if err := val.v.Struct(s); err != nil {
		return nil, toValidationError(err)
	}

	if val.domain != nil {
		if err := val.domain.Verify(ctx, DomainOf(s.Email)); err != nil {
			return nil, err
		}
	}

	return &domain.ContactSubmission{
		Name:    s.Name,
		Email:   s.Email,
		Phone:   s.Phone,
		Message: s.Message,
	}, nil
}

// Missing fields win over a malformed email.
func toValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperrors.Wrap(apperrors.ErrCodeInternalError, "validation failed", err)
	}
	for _, fe := range errs {
		if fe.Tag() == "required" {
			return apperrors.Validation(apperrors.KindMissingFields, "",
				"Name, email and message are required")
		}
	}
	return apperrors.Validation(apperrors.KindInvalidEmailFormat, "email",
		"Invalid email format")
}

// DomainOf returns the part of email after the last '@'.
func DomainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
