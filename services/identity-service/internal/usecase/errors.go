package usecase

import (
	"errors"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrPasswordMismatch      = errors.New("incorrect password")
	ErrPhoneNotConfirmed     = errors.New("phone number is not confirmed")
	ErrInvalidTwoFactorCode  = errors.New("invalid two factor code")
	ErrTwoFactorNotEnabled   = errors.New("two factor authentication is not enabled")
	ErrUnknownProvider       = errors.New("unknown external login provider")
	ErrInvalidPendingContext = errors.New("invalid two factor pending context")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// ValidationError is the structured error list returned for rejected input.
// It matches ErrValidation and, when present, the underlying cause.
type ValidationError struct {
	Errors []FieldError
	cause  error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrValidation}
	}

	return []error{ErrValidation, e.cause}
}

func newFieldError(field, tag string, cause error) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Tag: tag, Message: cause.Error()}},
		cause:  cause,
	}
}

// validationError converts validator output into a ValidationError with messages in trans.
// Errors that are not validator.ValidationErrors are returned unchanged.
func validationError(err error, trans ut.Translator) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: msg})
	}

	return out
}
