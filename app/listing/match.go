package listing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Matcher decides whether a listing entry's display text names a talk.
type Matcher interface {
	Match(text, title string) bool
}

// SubstringMatcher matches when the title occurs in the text under Unicode case folding.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(text, title string) bool {
	title = fold(title)
	if strings.TrimSpace(title) == "" {
		return false
	}
	return strings.Contains(fold(text), title)
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
