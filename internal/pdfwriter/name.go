package pdfwriter

import (
	"regexp"
	"strings"
)

// DefaultSuffix is appended to every suggested file name.
const DefaultSuffix = "_CV"

var whitespaceRun = regexp.MustCompile(`\s+`)

// SuggestedName turns a subject such as a person's full name into a file
// stem: surrounding whitespace is dropped, each inner whitespace run becomes
// one underscore and suffix is appended. Other punctuation is kept as is.
// A blank subject yields the suffix alone, without its leading underscore.
func SuggestedName(subject, suffix string) string {
	stem := whitespaceRun.ReplaceAllString(strings.TrimSpace(subject), "_")
	if stem == "" {
		if s := strings.TrimLeft(suffix, "_"); s != "" {
			return s
		}
		return "document"
	}
	return stem + suffix
}

// FileName is SuggestedName with the .pdf extension.
func FileName(subject, suffix string) string {
	return SuggestedName(subject, suffix) + ".pdf"
}
