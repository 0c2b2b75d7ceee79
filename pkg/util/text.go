package util

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

// Slugify converts a display name into a URL-safe slug ("Crane Scale 5T" -> "crane-scale-5t").
func Slugify(s string) string {
	return slug.Make(s)
}

// Truncate shortens s to at most n runes, cutting at the last word boundary
// and appending "…" when anything was removed.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}

// Initials returns up to two upper-case initials of name, used as the
// image fallback badge on product cards.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// Humanize turns a slug into a title ("jewellery-weighing-scales" -> "Jewellery Weighing Scales").
func Humanize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
