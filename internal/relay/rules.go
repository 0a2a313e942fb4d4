package relay

import (
	"github.com/mojo333/mdns-repeater/internal/config"
)

// Evaluate returns the interfaces a packet from origin should be relayed
// to. Rule effects are unioned; candidates are the relay interface names a
// rule's to pattern is expanded against. The origin is never a destination.
func Evaluate(origin string, pkt *Packet, rules []config.Rule, candidates []string) NameSet {
	targets := make(NameSet)
	for _, rule := range rules {
		if !rule.From.Match(origin) || !triggered(rule, pkt) {
			continue
		}
		for _, name := range candidates {
			if rule.To.Match(name) {
				targets.add(name)
			}
		}
	}
	delete(targets, origin)
	return targets
}

// triggered reports whether a question or an answer name is allowed by
// rule. Absent allow patterns never match.
func triggered(rule config.Rule, pkt *Packet) bool {
	return rule.AllowQuestions.MatchAny(pkt.Questions) ||
		rule.AllowAnswers.MatchAny(pkt.Answers)
}
