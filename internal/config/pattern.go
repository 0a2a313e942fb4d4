package config

import (
	"regexp"

	"github.com/mojo333/mdns-repeater/internal/errors"
)

// Pattern is a regular expression matched against the whole input string.
//
// A nil *Pattern stands for an absent optional pattern and never matches.
type Pattern struct {
	expr string
	re   *regexp.Regexp
}

// Compile compiles expr anchored at both ends.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "invalid pattern %q", expr)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Literal returns a pattern matching exactly s.
func Literal(s string) *Pattern {
	return MustCompile(regexp.QuoteMeta(s))
}

// Match reports whether s matches in full.
func (p *Pattern) Match(s string) bool {
	if p == nil {
		return false
	}
	return p.re.MatchString(s)
}

// MatchAny reports whether any of names matches.
func (p *Pattern) MatchAny(names map[string]struct{}) bool {
	if p == nil {
		return false
	}
	for name := range names {
		if p.re.MatchString(name) {
			return true
		}
	}
	return false
}

// String returns the expression as written in the configuration.
func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}
