package gen

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pascal converts a name to an exported Go identifier.
//
//	pascal("order_line") // OrderLine
//	pascal("createdAt")  // CreatedAt
func pascal(s string) string {
	// Casers hold state and are not safe for concurrent use.
	title := cases.Title(language.English, cases.NoLower)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	id := b.String()
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "X" + id
	}
	return id
}

// fileName returns the generated file of a type.
func fileName(typeName string) string {
	return inflect.Underscore(typeName) + ".go"
}

// names hands out unique identifiers within one generated package.
type names map[string]bool

// take returns the first free candidate, or the last one with a numeric
// suffix when all are taken.
func (n names) take(candidates ...string) string {
	for _, c := range candidates {
		if !n[c] {
			n[c] = true
			return c
		}
	}
	last := candidates[len(candidates)-1]
	for i := 2; ; i++ {
		alt := last + strconv.Itoa(i)
		if !n[alt] {
			n[alt] = true
			return alt
		}
	}
}
