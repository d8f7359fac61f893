// Package sql provides lexical helpers for generated SQL: literal masking,
// single-statement validation and injection screening of option values.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrUnterminatedLiteral indicates a quote that is never closed.
	ErrUnterminatedLiteral = errors.New("unterminated quoted literal")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateStatement checks generated SQL before it is sent to a driver.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Reject unterminated literals
// 3. Reject any remaining semicolon outside literals
//
// backslashEscapes selects MySQL-style string escaping.
func ValidateStatement(sqlQuery string, backslashEscapes bool) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	masked, closed := maskLiterals(normalized, backslashEscapes)
	if !closed {
		return ValidationResult{Error: ErrUnterminatedLiteral}
	}
	if strings.ContainsRune(masked, ';') {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
