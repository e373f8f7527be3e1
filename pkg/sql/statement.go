// Package sql provides the textual SQL utilities the validator and
// optimizer are built on: the read-only statement gate, normalization, and
// dialect-specific rewriting.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrMultipleStatements indicates the text contains more than one SQL
	// statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadStatement indicates the statement does not begin with
	// SELECT or WITH.
	ErrNotReadStatement = errors.New("only SELECT and WITH statements are permitted")
)

// readStatementPattern is the structural gate against non-read statements.
var readStatementPattern = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\s+`)

// IsReadStatement reports whether the statement begins with SELECT or WITH,
// case-insensitively. This is a hard gate: anything else is rejected before
// any connection is attempted.
func IsReadStatement(sqlText string) bool {
	return readStatementPattern.MatchString(sqlText)
}

// Normalize strips a trailing semicolon and rejects multi-statement input.
// The returned text is what downstream validation and rewriting operate on.
func Normalize(sqlText string) (string, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return "", nil
	}

	normalized := stripTrailingSemicolon(sqlText)

	// The trailing semicolon is gone, so any survivor outside a string
	// literal means a second statement.
	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	return normalized, nil
}

// hasSemicolonOutsideStrings scans with a small state machine so semicolons
// inside string literals do not trip the multi-statement check.
func hasSemicolonOutsideStrings(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
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
			// Handles both backslash escape (\') and SQL doubled quote ('');
			// the doubled quote exits and immediately re-enters, which keeps
			// the net state correct.
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

func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}
