package relay

import (
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/mojo333/mdns-repeater/internal/errors"
)

// NameSet is a set of DNS names without the trailing root dot.
type NameSet map[string]struct{}

func (s NameSet) add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s NameSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Packet holds the names extracted from an mDNS message.
type Packet struct {
	Questions NameSet
	Answers   NameSet
}

// Classify decodes buf as a DNS message and collects the names of its
// questions and of its answer records.
func Classify(buf []byte) (*Packet, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(buf); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformed, "invalid DNS message")
	}

	pkt := &Packet{
		Questions: make(NameSet, len(msg.Question)),
		Answers:   make(NameSet, len(msg.Answer)),
	}
	for _, q := range msg.Question {
		pkt.Questions.add(trimRoot(q.Name))
	}
	for _, rr := range msg.Answer {
		pkt.Answers.add(trimRoot(rr.Header().Name))
	}
	return pkt, nil
}

func trimRoot(name string) string {
	if name == "." {
		return name
	}
	return strings.TrimSuffix(name, ".")
}
