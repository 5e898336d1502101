package accounts

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// Public messages returned to callers. Login and token failures reuse a
// single message for every internal cause so a response never reveals
// whether an email or a token exists.
const (
	MsgInvalidCredentials      = "Invalid credentials"
	MsgInvalidVerificationCode = "Invalid or expired verification code"
	MsgInvalidResetToken       = "Invalid or expired reset token"
	MsgAccountExists           = "User already exists"
	MsgAccountNotFound         = "User not found"
	MsgServerError             = "Server error"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a password
	// mismatch during login.
	ErrInvalidCredentials = goerrors.New(MsgInvalidCredentials, goerrors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIALS")

	// ErrVerificationCodeInvalid covers unknown, expired, and already
	// consumed verification codes.
	ErrVerificationCodeInvalid = goerrors.New(MsgInvalidVerificationCode, goerrors.CategoryAuth).
					WithTextCode("VERIFICATION_CODE_INVALID")

	// ErrResetTokenInvalid covers unknown, expired, and already consumed
	// reset tokens.
	ErrResetTokenInvalid = goerrors.New(MsgInvalidResetToken, goerrors.CategoryAuth).
				WithTextCode("RESET_TOKEN_INVALID")

	// ErrAccountExists is returned when a signup email is already taken.
	ErrAccountExists = goerrors.New(MsgAccountExists, goerrors.CategoryConflict).
				WithTextCode("ACCOUNT_EXISTS")

	// ErrAccountNotFound is returned when a lookup by email or session
	// subject finds no account.
	ErrAccountNotFound = goerrors.New(MsgAccountNotFound, goerrors.CategoryNotFound).
				WithTextCode("ACCOUNT_NOT_FOUND").
				WithCode(goerrors.CodeNotFound)

	// ErrNoEmptyString rejects empty passwords before hashing.
	ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
				WithTextCode("EMPTY_PASSWORD")

	// ErrMismatchedHashAndPassword is the internal bcrypt mismatch error.
	ErrMismatchedHashAndPassword = goerrors.New(MsgInvalidCredentials, goerrors.CategoryAuth).
					WithTextCode("INVALID_CREDENTIALS")

	// ErrTokenExpired is returned for expired session JWTs.
	ErrTokenExpired = goerrors.New("Authentication token expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenMalformed is returned for session JWTs we cannot parse.
	ErrTokenMalformed = goerrors.New("Invalid authentication token", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == ErrTokenExpired.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == ErrTokenMalformed.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
