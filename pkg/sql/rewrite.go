package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// OptimizedMarker is prepended when the optimizer recognizes a rewritable
// construct. Callers and tests key off its presence.
const OptimizedMarker = "/* optimized */"

var (
	joinAliasPattern       = regexp.MustCompile(`(?i)\bJOIN\s+\S+\s+AS\s+\S+\s+ON\b`)
	positionalParamPattern = regexp.MustCompile(`\$\d+`)
	limitClausePattern     = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)
	castIdiomPattern       = regexp.MustCompile(`::\w+`)
	trailingLimitPattern   = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*$`)
)

// Optimize applies dialect-specific textual rewriting to a generated
// statement. For Oracle targets, PostgreSQL idioms are stripped and a
// trailing LIMIT becomes a ROWNUM predicate. Queries using explicit join
// aliasing get the optimization marker prefixed.
func Optimize(sqlText string, d models.Dialect) string {
	result := strings.TrimSpace(sqlText)

	if d == models.DialectOracle {
		result = RewriteForOracle(result)
	}

	if joinAliasPattern.MatchString(result) && !strings.HasPrefix(result, OptimizedMarker) {
		result = OptimizedMarker + " " + result
	}

	return result
}

// RewriteForOracle adapts PostgreSQL-flavored SQL for an Oracle target:
// `::type` casts are dropped and a trailing LIMIT n becomes a ROWNUM
// predicate, either as a fresh WHERE clause or injected into an existing
// one. The rewrite is textual and only touches the outermost statement; a
// LIMIT inside a subquery is left alone.
func RewriteForOracle(sqlText string) string {
	result := castIdiomPattern.ReplaceAllString(sqlText, "")
	return rewriteTrailingLimit(result)
}

func rewriteTrailingLimit(sqlText string) string {
	match := trailingLimitPattern.FindStringSubmatchIndex(sqlText)
	if match == nil {
		return sqlText
	}

	// Only rewrite when the LIMIT sits at paren depth zero; a trailing
	// LIMIT that closes a subquery, e.g. "... LIMIT 5)", never matches the
	// end-of-string pattern, and one inside an unbalanced scan is skipped.
	if parenDepthAt(sqlText, match[0]) != 0 {
		return sqlText
	}

	limitValue := sqlText[match[2]:match[3]]
	stripped := strings.TrimRight(sqlText[:match[0]], " \t\n\r")

	whereIdx := topLevelKeywordIndex(stripped, "WHERE")
	if whereIdx < 0 {
		return fmt.Sprintf("%s WHERE ROWNUM <= %s", stripped, limitValue)
	}

	// Inject right after the WHERE keyword so the row bound applies before
	// the original predicate.
	afterWhere := whereIdx + len("WHERE")
	rest := strings.TrimLeft(stripped[afterWhere:], " \t\n\r")
	return fmt.Sprintf("%s ROWNUM <= %s AND %s", stripped[:afterWhere], limitValue, rest)
}

// parenDepthAt returns the parenthesis nesting depth at byte offset pos,
// ignoring parens inside single-quoted strings.
func parenDepthAt(sqlText string, pos int) int {
	depth := 0
	inString := false
	for i, char := range sqlText {
		if i >= pos {
			break
		}
		switch {
		case inString:
			if char == '\'' {
				inString = false
			}
		case char == '\'':
			inString = true
		case char == '(':
			depth++
		case char == ')':
			depth--
		}
	}
	return depth
}

// topLevelKeywordIndex finds the first occurrence of keyword at paren depth
// zero, outside string literals, on a word boundary. Returns -1 when absent.
func topLevelKeywordIndex(sqlText, keyword string) int {
	// ASCII-only fold: strings.ToUpper can change the byte length of
	// non-ASCII runes in literals, which would desync the indexes applied
	// back to sqlText.
	upper := asciiUpper(sqlText)
	keyword = asciiUpper(keyword)

	searchFrom := 0
	for {
		idx := strings.Index(upper[searchFrom:], keyword)
		if idx < 0 {
			return -1
		}
		idx += searchFrom

		boundedLeft := idx == 0 || !isWordChar(upper[idx-1])
		end := idx + len(keyword)
		boundedRight := end >= len(upper) || !isWordChar(upper[end])

		if boundedLeft && boundedRight && parenDepthAt(sqlText, idx) == 0 && !insideString(sqlText, idx) {
			return idx
		}
		searchFrom = idx + len(keyword)
	}
}

func insideString(sqlText string, pos int) bool {
	inString := false
	for i, char := range sqlText {
		if i >= pos {
			break
		}
		if char == '\'' {
			inString = !inString
		}
	}
	return inString
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// asciiUpper uppercases a-z bytes only, leaving every other byte (including
// multi-byte runes) untouched so offsets stay valid in the original string.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// HasDoubleQuotedIdentifiers reports double-quoted identifiers, a
// PostgreSQL habit that breaks Oracle's case-folding expectations.
func HasDoubleQuotedIdentifiers(sqlText string) bool {
	inString := false
	for _, char := range sqlText {
		switch {
		case inString:
			if char == '\'' {
				inString = false
			}
		case char == '\'':
			inString = true
		case char == '"':
			return true
		}
	}
	return false
}

// HasPositionalParameters reports PostgreSQL-style $n parameter markers.
func HasPositionalParameters(sqlText string) bool {
	return positionalParamPattern.MatchString(sqlText)
}

// HasLimitClause reports a LIMIT clause anywhere in the statement.
func HasLimitClause(sqlText string) bool {
	return limitClausePattern.MatchString(sqlText)
}

var fromTargetPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_.]*)`)

// TableReferences returns the tables named after FROM or JOIN, deduplicated
// in order of first appearance. Subqueries contribute their own FROM targets;
// Oracle's DUAL dummy table is skipped since it is always present.
func TableReferences(sqlText string) []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, match := range fromTargetPattern.FindAllStringSubmatch(sqlText, -1) {
		table := match[1]
		if strings.EqualFold(table, "dual") {
			continue
		}
		key := strings.ToUpper(table)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, table)
	}
	return refs
}

// HasUnprefixedTableReferences reports table references after FROM or JOIN
// that carry no schema prefix.
func HasUnprefixedTableReferences(sqlText string) bool {
	for _, table := range TableReferences(sqlText) {
		if !strings.Contains(table, ".") {
			return true
		}
	}
	return false
}
