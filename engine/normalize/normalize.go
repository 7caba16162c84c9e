// Package normalize holds the string cleaning rules applied to validated
// fields before aggregation.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Rule transforms a string. Rules compose left to right in Apply.
type Rule func(string) string

// Apply runs value through rules in order.
func Apply(value string, rules ...Rule) string {
	for _, rule := range rules {
		value = rule(value)
	}
	return value
}

// Trim removes leading and trailing white space.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// CollapseSpace replaces every run of white space with a single space and
// trims both ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Lower lower-cases s. cases.Caser keeps state, so one is built per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Fold applies Unicode case folding, the form used to compare identifiers.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// NFKC applies compatibility composition so visually equal text compares
// equal (full-width letters, ligatures).
func NFKC(s string) string {
	return norm.NFKC.String(s)
}

// Key is the canonical form of an identifier supplied by users.
func Key(s string) string {
	return Apply(s, Trim, NFKC, Fold)
}

// Words splits s on white space after collapsing it.
func Words(s string) []string {
	return strings.Fields(s)
}

// Capitalize upper-cases the first letter of word and lower-cases the rest.
func Capitalize(word string) string {
	if word == "" {
		return word
	}
	first, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToTitle(first)) + Lower(word[size:])
}
