package sql

import (
	"regexp"
	"strings"
)

var (
	sqlFencePattern    = regexp.MustCompile("(?s)```(?:sql)?\n?(.*?)```")
	lineCommentRegexp  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRegexp = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRegexp   = regexp.MustCompile(`\s+`)
)

// CleanGeneratedSQL strips the decoration models wrap around SQL: markdown
// fences, backticks, SQL comments, and ragged whitespace. The result is a
// single-line statement ready for ValidateReadOnly.
func CleanGeneratedSQL(raw string) string {
	cleaned := raw

	if m := sqlFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.ReplaceAll(cleaned, "`", "")

	cleaned = lineCommentRegexp.ReplaceAllString(cleaned, "")
	cleaned = blockCommentRegexp.ReplaceAllString(cleaned, "")

	cleaned = whitespaceRegexp.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
