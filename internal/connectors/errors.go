package connectors

import (
	"errors"
	"fmt"
)

// Code is a short machine-readable connector failure code.
// Callers branch on codes, never on message text.
type Code string

const (
	// Configuration errors. Not retryable until configuration changes.
	CodeUnknownPlatform     Code = "UNKNOWN_PLATFORM"
	CodeMissingClientID     Code = "MISSING_CLIENT_ID"
	CodeMissingClientSecret Code = "MISSING_CLIENT_SECRET"

	// Provider rejections. Carry the raw response body in Details.
	CodeExchangeFailed Code = "EXCHANGE_FAILED"
	CodeRefreshFailed  Code = "REFRESH_FAILED"
	CodeUserInfoFailed Code = "USER_INFO_FAILED"

	// Capability gaps. The operation is impossible for this platform or
	// flow state; retrying cannot help.
	CodeRefreshNotSupported Code = "REFRESH_NOT_SUPPORTED"
	CodeRevokeNotSupported  Code = "REVOKE_NOT_SUPPORTED"
	CodeNoUserInfoURL       Code = "NO_USER_INFO_URL"
	CodePKCEVerifierMissing Code = "PKCE_VERIFIER_MISSING"
)

// Error is the structured failure shape for every connector operation.
// Raw HTTP/provider errors never escape a connector unwrapped.
type Error struct {
	Platform Platform
	Code     Code
	Message  string
	// Details holds the raw provider response body (or transport error text)
	// for operator diagnosis. Never shown to end users.
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", e.Platform, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Code, e.Message)
}

// E builds a connector error.
func E(platform Platform, code Code, message string) *Error {
	return &Error{Platform: platform, Code: code, Message: message}
}

// WithDetails returns a copy carrying provider response details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Platform: e.Platform, Code: e.Code, Message: e.Message, Details: details}
}

// IsCode reports whether err is a connector error with the given code.
func IsCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
