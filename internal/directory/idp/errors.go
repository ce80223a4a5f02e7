package idp

import "fmt"

// ErrorCode enumerates the provider failure codes the coordinator and
// classifier reason about. Codes the provider may return that are not
// listed here surface as CodeUnknown with the raw message preserved.
type ErrorCode string

const (
	CodeDuplicateIdentifier ErrorCode = "form_identifier_exists"
	CodePasswordPwned       ErrorCode = "form_password_pwned"
	CodePasswordTooShort    ErrorCode = "form_password_length_too_short"
	CodeSessionInvalid      ErrorCode = "session_token_invalid"
	CodeSessionExpired      ErrorCode = "session_token_expired"
	CodeRateLimited         ErrorCode = "rate_limit_exceeded"
	CodeUserLocked          ErrorCode = "user_locked"
	CodeUserBanned          ErrorCode = "user_banned"
	CodeVerificationInvalid ErrorCode = "verification_code_invalid"
	CodeNotFound            ErrorCode = "resource_not_found"
	CodeUnknown             ErrorCode = "unknown"
)

// Error is a typed provider failure. Message is the provider's raw text,
// kept for the classifier's unknown-code fallback.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider: %s: %s", e.Code, e.Message)
}

// NewError builds a typed provider error from a wire code. Unrecognized
// codes are kept verbatim so nothing is lost before classification.
func NewError(code, message string) *Error {
	return &Error{Code: ErrorCode(code), Message: message}
}
