package codegen

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// exportName turns an id, setting name or choice value into an exported Go
// identifier: words split on anything that is not a letter or digit, each
// word title-cased, the rest of the word left alone.
func exportName(s string) string {
	// Casers keep state between calls; one per call.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		b.WriteString(title.String(w))
	}
	name := b.String()
	if name == "" {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsUpper(r) {
		name = "X" + name
	}
	return name
}

// localName strips the plugin id prefix most plugins put in front of their
// entity ids, so com.example.foo.set_volume becomes SetVolume.
func localName(pluginID, id string) string {
	for _, sep := range []string{".", "_", "-"} {
		if rest, ok := strings.CutPrefix(id, pluginID+sep); ok && exportName(rest) != "" {
			return exportName(rest)
		}
	}
	return exportName(id)
}

// reservedParams are names the generated closures use themselves.
var reservedParams = map[string]bool{
	"ctx": true, "mode": true, "args": true, "err": true, "value": true,
	"instanceID": true, "selected": true, "h": true, "s": true, "choices": true,
}

// paramName turns an exported name into a parameter name: APIKey becomes
// apiKey, Volume becomes volume.
func paramName(exported string) string {
	runes := []rune(exported)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
	case n == 1 || n == len(runes) || !unicode.IsLower(runes[n]):
		for i := range n {
			runes[i] = unicode.ToLower(runes[i])
		}
	default:
		// Keep the last capital: it starts the next word.
		for i := range n - 1 {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	name := string(runes)
	if token.IsKeyword(name) || reservedParams[name] {
		name += "Arg"
	}
	return name
}

// scope detects two sources mapping to the same Go name.
type scope struct {
	what  string
	names map[string]string
}

func newScope(what string, reserved ...string) *scope {
	s := &scope{what: what, names: make(map[string]string)}
	for _, r := range reserved {
		s.names[r] = "generated " + r
	}
	return s
}

func (s *scope) declare(name, source string) error {
	if name == "" {
		return fmt.Errorf("%w: %s has no usable Go name", ErrProjection, source)
	}
	if prev, ok := s.names[name]; ok {
		return fmt.Errorf("%w: %s and %s both map to %s %s", ErrProjection, prev, source, s.what, name)
	}
	s.names[name] = source
	return nil
}
