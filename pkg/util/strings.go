package util

import (
	"regexp"
	"strings"
)

var parentheticalRegex = regexp.MustCompile(`\s*\([^)]*\)`)

// CollapseWhitespace trims a string and reduces any internal runs of
// whitespace down to single spaces
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripParentheticals removes any bracketed suffixes from a name, so
// "14 St (1,2,3)" becomes "14 St"
func StripParentheticals(s string) string {
	return parentheticalRegex.ReplaceAllString(s, "")
}
