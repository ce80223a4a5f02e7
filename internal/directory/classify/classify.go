// Package classify maps heterogeneous lifecycle failures to one
// human-readable message for the Result envelope. It is pure: no I/O,
// no panics, and a non-empty string for every input including nil.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"roster/internal/directory/idp"
	"roster/internal/directory/store"
)

// Fallback is returned when nothing more specific can be said.
const Fallback = "Something went wrong!"

// providerMessages is the fixed table for known provider codes. Unknown
// codes fall back to the provider's raw message.
var providerMessages = map[idp.ErrorCode]string{
	idp.CodeDuplicateIdentifier: "That username or email address is already taken.",
	idp.CodePasswordPwned:       "This password has appeared in a data breach. Choose a different one.",
	idp.CodePasswordTooShort:    "The password is too short.",
	idp.CodeSessionInvalid:      "Your session is invalid. Sign in again.",
	idp.CodeSessionExpired:      "Your session has expired. Sign in again.",
	idp.CodeRateLimited:         "Too many requests. Try again in a moment.",
	idp.CodeUserLocked:          "This account is locked.",
	idp.CodeUserBanned:          "This account has been banned.",
	idp.CodeVerificationInvalid: "The verification code is invalid.",
	idp.CodeNotFound:            "The account does not exist.",
}

// Error classifies any failure into one message. The order mirrors the
// error sources: provider first, then datastore, then anything that can
// describe itself, then the fixed fallback.
func Error(err error) string {
	if err == nil {
		return Fallback
	}

	var providerErr *idp.Error
	if errors.As(err, &providerErr) {
		return providerMessage(providerErr)
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return storeMessage(storeErr)
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return Fallback
}

func providerMessage(e *idp.Error) string {
	if msg, ok := providerMessages[e.Code]; ok {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	return Fallback
}

func storeMessage(e *store.Error) string {
	switch e.Code {
	case store.CodeUniqueViolation:
		return fmt.Sprintf("A record with the same %s already exists.", fieldList(e.Fields))
	case store.CodeForeignKeyViolation:
		return fmt.Sprintf("Foreign key constraint failed on %s. Make sure related data exists.", fieldList(e.Fields))
	case store.CodeRequiredRelation:
		return fmt.Sprintf("A required relation is missing on %s.", fieldList(e.Fields))
	case store.CodeNotFound:
		return "Record to update/delete does not exist."
	case store.CodePoolTimeout:
		return "The database took too long to respond. Try again."
	default:
		return fmt.Sprintf("Database error [%s]: %s", e.RawCode, e.Message)
	}
}

func fieldList(fields []string) string {
	if len(fields) == 0 {
		return "a field"
	}
	return strings.Join(fields, ", ")
}
