// Package persona holds the set of assistant roles a user can talk to.
package persona

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// BaseName is the persona every unknown name falls back to.
const BaseName = "base"

// Namespace is the KV namespace persona records live in.
const Namespace = "personas"

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

type Persona struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Description string `json:"description,omitempty" yaml:"description"`
	Builtin     bool   `json:"builtin" yaml:"builtin"`
}

// Normalize lowercases and trims a persona name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidName reports whether an already normalized name can be registered.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// DisplayName derives the label shown to users: "pirate" becomes "Pirate".
func DisplayName(name string) string {
	name = Normalize(name)
	if name == BaseName {
		return "Business Domain Expert"
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
