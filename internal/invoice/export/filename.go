package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filename derives the download name from the company name: accents are
// folded, whitespace runs become a single hyphen and the result is
// lowercased. An empty name gives "factura-pro.pdf".
func Filename(companyName string) string {
	slug := Slug(companyName)
	if slug == "" {
		slug = "pro"
	}
	return "factura-" + slug + ".pdf"
}

// Slug folds, lowercases and hyphenates s.
func Slug(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '\\' || r == '"' || unicode.IsControl(r)
	})
	return strings.Join(words, "-")
}
