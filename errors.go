package auth

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when the cache holds no session record
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrNoEmptyString guards against hashing an empty password
var ErrNoEmptyString = errors.New("can't use empty string")

// ErrMismatchedHashAndPassword password does not match stored hash
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrTokenExpired is returned for structurally valid but expired tokens.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse at all.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// NewValidationError flags bad user input, rendered as 400.
func NewValidationError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode("VALIDATION_ERROR").
		WithCode(goerrors.CodeBadRequest)
}

// NewDuplicateEmailError flags an email already taken, rendered as 400.
func NewDuplicateEmailError(email string) *goerrors.Error {
	return goerrors.New("email already exists", goerrors.CategoryConflict).
		WithTextCode("DUPLICATE_EMAIL").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"email": email})
}

// NewInvalidActivationCodeError flags an activation code that does not match
// the token's, rendered as 401.
func NewInvalidActivationCodeError() *goerrors.Error {
	return goerrors.New("invalid activation code", goerrors.CategoryAuth).
		WithTextCode("INVALID_ACTIVATION_CODE").
		WithCode(goerrors.CodeUnauthorized)
}

// NewInvalidCredentialsError covers both unknown email and wrong password
// with a single message so callers cannot probe which one failed.
func NewInvalidCredentialsError() *goerrors.Error {
	return goerrors.New("invalid email or password", goerrors.CategoryAuth).
		WithTextCode("INVALID_CREDENTIALS").
		WithCode(goerrors.CodeUnauthorized)
}

// NewUnauthorizedError flags a missing or unusable credential, rendered as 401.
func NewUnauthorizedError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryAuth).
		WithTextCode("UNAUTHORIZED").
		WithCode(goerrors.CodeUnauthorized)
}

// NewForbiddenError flags an authenticated caller without the needed role.
func NewForbiddenError(role string) *goerrors.Error {
	return goerrors.New("role is not allowed to access this resource", goerrors.CategoryAuthz).
		WithTextCode("FORBIDDEN").
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{"role": role})
}

// NewNotFoundError flags a missing record, rendered as 404.
func NewNotFoundError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryNotFound).
		WithTextCode("NOT_FOUND").
		WithCode(goerrors.CodeNotFound)
}

// ErrorStatusCode maps an error to the HTTP status the controller renders.
// Unexpected errors collapse into a 500 with no internal detail.
func ErrorStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// repository lookups surface their own not-found error type
	if repository.IsRecordNotFound(err) {
		return http.StatusNotFound
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code != 0 {
			return int(rich.Code)
		}
		switch rich.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
			return http.StatusBadRequest
		case goerrors.CategoryAuth:
			return http.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return http.StatusForbidden
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}

	if goerrors.IsNotFound(err) {
		return http.StatusNotFound
	}

	switch {
	case errors.Is(err, ErrIdentityNotFound),
		errors.Is(err, ErrUnableToFindSession),
		errors.Is(err, ErrUnableToDecodeSession),
		errors.Is(err, ErrUnableToMapClaims),
		errors.Is(err, ErrMismatchedHashAndPassword):
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation detects a unique index breach across the drivers we run
// on (sqlite in tests, postgres in production).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
