package graphql

import (
	"path"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/relmap/compiler/load"
)

// pascal converts a name to a GraphQL type name.
func pascal(s string) string {
	title := cases.Title(language.English, cases.NoLower)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "X" + name
	}
	return name
}

// camel converts a name to a GraphQL field name. A leading initialism is
// lowered as a whole.
//
//	camel("Customer")  // customer
//	camel("ID")        // id
//	camel("URLPath")   // urlPath
func camel(s string) string {
	r := []rune(pascal(s))
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	if n > 1 && n < len(r) {
		n--
	}
	lower := cases.Lower(language.English)
	return lower.String(string(r[:n])) + string(r[n:])
}

// typeNames assigns unique GraphQL type names. Types sharing a name are
// qualified by the last element of their package path.
type typeNames struct {
	byID  map[load.TypeID]string
	taken map[string]bool
}

func newTypeNames() *typeNames {
	taken := make(map[string]bool)
	for _, s := range builtinScalars {
		taken[s] = true
	}
	for _, s := range []string{"Query", "Mutation", "Subscription"} {
		taken[s] = true
	}
	return &typeNames{byID: make(map[load.TypeID]string), taken: taken}
}

func (n *typeNames) assign(id load.TypeID) string {
	if name, ok := n.byID[id]; ok {
		return name
	}
	name := pascal(id.Name)
	if n.taken[name] {
		name = pascal(path.Base(id.PkgPath)) + name
	}
	for i, base := 2, name; n.taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n.taken[name] = true
	n.byID[id] = name
	return name
}

func (n *typeNames) of(id load.TypeID) (string, bool) {
	name, ok := n.byID[id]
	return name, ok
}
