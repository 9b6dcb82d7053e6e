package parser

import (
	"regexp"
	"strings"
)

var (
	bylinePrefixes = []string{"von: ", "by "}
	parenthesized  = regexp.MustCompile(`\(.*?\)`)
	spaceBefore    = regexp.MustCompile(`\s+([,;])`)
)

// CleanByline strips the localized "by"/"von:" prefix and any parenthesized
// format annotation, e.g. "by John Doe (Paperback)" becomes "John Doe".
func CleanByline(by string) string {
	by = strings.Join(strings.Fields(by), " ")
	for _, prefix := range bylinePrefixes {
		by = strings.TrimPrefix(by, prefix)
	}
	by = parenthesized.ReplaceAllString(by, "")
	by = spaceBefore.ReplaceAllString(by, "$1")
	return strings.Join(strings.Fields(by), " ")
}
