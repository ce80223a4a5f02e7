// Package store defines the typed datastore failure shared by the
// role-specific repositories, plus the mapping from driver errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrorCode enumerates the datastore failure classes the coordinator and
// classifier reason about.
type ErrorCode string

const (
	CodeUniqueViolation     ErrorCode = "unique_violation"
	CodeForeignKeyViolation ErrorCode = "foreign_key_violation"
	CodeRequiredRelation    ErrorCode = "required_relation"
	CodeNotFound            ErrorCode = "not_found"
	CodePoolTimeout         ErrorCode = "pool_timeout"
	CodeUnknown             ErrorCode = "unknown"
)

// Error is a typed datastore failure. Fields names the offending
// column(s) for constraint violations; Raw keeps the driver's SQLSTATE
// and message for the classifier's fallback.
type Error struct {
	Code    ErrorCode
	Fields  []string
	RawCode string
	Message string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("datastore: %s on %s", e.Code, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("datastore: %s: %s", e.Code, e.Message)
}

// ErrNotFound keeps repository 404s consistent across postgres and
// memory implementations.
var ErrNotFound = &Error{Code: CodeNotFound, Message: "record does not exist"}

// MapError converts a driver error into a typed Error. Errors that are
// already typed pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodePoolTimeout, Message: "timed out waiting for a connection"}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &Error{
				Code:    CodeUniqueViolation,
				Fields:  detailFields(pqErr),
				RawCode: string(pqErr.Code),
				Message: pqErr.Message,
			}
		case "23503": // foreign_key_violation
			return &Error{
				Code:    CodeForeignKeyViolation,
				Fields:  detailFields(pqErr),
				RawCode: string(pqErr.Code),
				Message: pqErr.Message,
			}
		case "23502": // not_null_violation
			fields := []string{}
			if pqErr.Column != "" {
				fields = append(fields, pqErr.Column)
			}
			return &Error{
				Code:    CodeRequiredRelation,
				Fields:  fields,
				RawCode: string(pqErr.Code),
				Message: pqErr.Message,
			}
		case "53300": // too_many_connections
			return &Error{Code: CodePoolTimeout, RawCode: string(pqErr.Code), Message: pqErr.Message}
		default:
			return &Error{Code: CodeUnknown, RawCode: string(pqErr.Code), Message: pqErr.Message}
		}
	}
	return err
}

// detailFields extracts the column list from a constraint violation
// detail line, e.g. `Key (email)=(x@y) already exists.` -> [email].
func detailFields(pqErr *pq.Error) []string {
	detail := pqErr.Detail
	start := strings.Index(detail, "(")
	end := strings.Index(detail, ")")
	if start < 0 || end <= start+1 {
		if pqErr.Column != "" {
			return []string{pqErr.Column}
		}
		return nil
	}
	parts := strings.Split(detail[start+1:end], ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
