package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Kind enumerates every failure class that can reach the HTTP boundary.
type Kind uint8

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindInvalidInput
	KindDuplicateEmail
	KindInvalidCredentials
	KindPrincipalMissing
	KindStorageUnavailable
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindDuplicateEmail:
		return "DUPLICATE_EMAIL"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindPrincipalMissing:
		return "PRINCIPAL_MISSING"
	case KindStorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

const (
	unauthorisedMessage = "Unauthorised"
	internalMessage     = "Something went wrong"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// NewUnauthorized rejects a request at the authentication gate. The reason is
// kept for logs only; the boundary always answers with the same message.
func NewUnauthorized(reason string) error {
	return NewDomainError(KindUnauthorized, reason, nil)
}

func NewInvalidInput(message string) error {
	return NewDomainError(KindInvalidInput, message, nil)
}

func NewDuplicateEmail() error {
	return NewDomainError(KindDuplicateEmail, "email already registered", nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(KindInvalidCredentials, "invalid credentials", nil)
}

func NewPrincipalMissing() error {
	return NewDomainError(KindPrincipalMissing, "No logged in user", nil)
}

func NewStorageUnavailable(err error) error {
	return NewDomainError(KindStorageUnavailable, "storage unavailable", err)
}

func NewInternalError(err error) error {
	return NewDomainError(KindInternal, "internal server error", err)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	return NewDomainError(KindInternal, internalMessage, err)
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch {
	case err.Code == http.StatusUnauthorized:
		return NewDomainError(KindUnauthorized, err.Message, err)
	case err.Code == http.StatusNotFound:
		return NewDomainError(KindNotFound, err.Message, err)
	case err.Code >= 400 && err.Code < 500:
		return NewDomainError(KindInvalidInput, err.Message, err)
	default:
		return NewDomainError(KindInternal, internalMessage, err)
	}
}

// Translate maps any error to the status and message exposed to the caller.
func Translate(err error) (int, string) {
	domainErr := ToDomainError(err)
	if domainErr == nil {
		return http.StatusOK, ""
	}

	switch domainErr.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized, unauthorisedMessage
	case KindInvalidInput, KindDuplicateEmail, KindInvalidCredentials:
		return http.StatusBadRequest, domainErr.Message
	case KindPrincipalMissing, KindNotFound:
		return http.StatusNotFound, domainErr.Message
	case KindStorageUnavailable, KindInternal:
		return http.StatusInternalServerError, internalMessage
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Kind == kind
}
