// Package config loads the repeater configuration: the interface-selection
// pattern and the ordered relay rules.
package config

import (
	"fmt"

	"github.com/mojo333/mdns-repeater/internal/errors"
)

// Rule relays packets from interfaces matching From to interfaces matching
// To, when a question matches AllowQuestions or an answer matches
// AllowAnswers. Either allow pattern may be nil.
type Rule struct {
	From           *Pattern
	To             *Pattern
	AllowQuestions *Pattern
	AllowAnswers   *Pattern
}

// Inert reports whether the rule can never trigger.
func (r Rule) Inert() bool {
	return r.AllowQuestions == nil && r.AllowAnswers == nil
}

func (r Rule) String() string {
	return fmt.Sprintf("from=%q to=%q questions=%q answers=%q",
		r.From, r.To, r.AllowQuestions, r.AllowAnswers)
}

// Config is immutable once loaded.
type Config struct {
	Interfaces *Pattern
	Rules      []Rule
}

// fileConfig is the on-disk shape shared by all supported formats.
type fileConfig struct {
	Interfaces string     `json:"interfaces" yaml:"interfaces" hcl:"interfaces"`
	Rules      []fileRule `json:"rules" yaml:"rules" hcl:"rule,block"`
}

type fileRule struct {
	From           string  `json:"from" yaml:"from" hcl:"from"`
	To             string  `json:"to" yaml:"to" hcl:"to"`
	AllowQuestions *string `json:"allow_questions" yaml:"allow_questions" hcl:"allow_questions,optional"`
	AllowAnswers   *string `json:"allow_answers" yaml:"allow_answers" hcl:"allow_answers,optional"`
}

func (fc *fileConfig) compile() (*Config, error) {
	if fc.Interfaces == "" {
		return nil, errors.New(errors.KindValidation, "interfaces pattern is required")
	}
	ifaces, err := Compile(fc.Interfaces)
	if err != nil {
		return nil, errors.Attr(err, "field", "interfaces")
	}

	cfg := &Config{Interfaces: ifaces, Rules: make([]Rule, 0, len(fc.Rules))}
	for i, fr := range fc.Rules {
		rule, err := fr.compile()
		if err != nil {
			return nil, errors.Attr(err, "rule", i)
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return cfg, nil
}

func (fr *fileRule) compile() (Rule, error) {
	var rule Rule
	var err error

	if fr.From == "" {
		return rule, errors.New(errors.KindValidation, "rule is missing from")
	}
	if fr.To == "" {
		return rule, errors.New(errors.KindValidation, "rule is missing to")
	}
	if rule.From, err = Compile(fr.From); err != nil {
		return rule, errors.Attr(err, "field", "from")
	}
	if rule.To, err = Compile(fr.To); err != nil {
		return rule, errors.Attr(err, "field", "to")
	}
	if fr.AllowQuestions != nil {
		if rule.AllowQuestions, err = Compile(*fr.AllowQuestions); err != nil {
			return rule, errors.Attr(err, "field", "allow_questions")
		}
	}
	if fr.AllowAnswers != nil {
		if rule.AllowAnswers, err = Compile(*fr.AllowAnswers); err != nil {
			return rule, errors.Attr(err, "field", "allow_answers")
		}
	}
	return rule, nil
}
