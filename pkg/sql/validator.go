// Package sql provides validation for model-generated SQL.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the statement could modify data and was blocked.
	ErrNotReadOnly = errors.New("only read-only SELECT statements are allowed")

	// ErrEmptyStatement indicates nothing was left after cleanup.
	ErrEmptyStatement = errors.New("empty SQL statement")
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE)\b`)

// ValidateReadOnly normalizes a generated statement and verifies it cannot
// modify data. Returns the normalized statement.
//
// The validation order is:
//  1. Strip trailing semicolon and whitespace (normalize)
//  2. Reject multiple statements (any remaining semicolons outside strings)
//  3. Reject anything that does not start with SELECT or WITH
//  4. Reject WITH statements whose CTEs contain INSERT/UPDATE/DELETE
func ValidateReadOnly(sqlQuery string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlQuery))
	if normalized == "" {
		return "", ErrEmptyStatement
	}

	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	upper := strings.ToUpper(normalized)
	switch {
	case strings.HasPrefix(upper, "SELECT"):
		return normalized, nil
	case strings.HasPrefix(upper, "WITH"):
		if modifyingCTEPattern.MatchString(normalized) {
			return "", ErrNotReadOnly
		}
		return normalized, nil
	default:
		return "", ErrNotReadOnly
	}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('')
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
