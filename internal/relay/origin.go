package relay

import (
	"net/netip"

	"github.com/mojo333/mdns-repeater/internal/errors"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

// Origin is the interface a datagram was resolved to.
type Origin struct {
	Name string
	// Filtered is set when the interface is observed-only.
	Filtered bool
}

// Table is the interface/socket table built at startup. It is never
// modified afterwards and may be read without locking.
type Table struct {
	relays   []*RelayInterface
	observed []netifaces.Interface
	self     map[netip.Addr]struct{}
}

// NewTable builds the table. The bound address of every relay is treated as
// our own, as is every address in extraSelf (e.g. the ingress address).
func NewTable(relays []*RelayInterface, observed []netifaces.Interface, extraSelf ...netip.Addr) *Table {
	t := &Table{
		relays:   relays,
		observed: observed,
		self:     make(map[netip.Addr]struct{}, len(relays)+len(extraSelf)),
	}
	for _, r := range relays {
		t.self[r.Addr.Unmap()] = struct{}{}
	}
	for _, a := range extraSelf {
		if a.IsValid() && !a.IsUnspecified() {
			t.self[a.Unmap()] = struct{}{}
		}
	}
	return t
}

// Relays returns the relay interfaces in discovery order.
func (t *Table) Relays() []*RelayInterface {
	return t.relays
}

// Observed returns the observed-only interfaces.
func (t *Table) Observed() []netifaces.Interface {
	return t.observed
}

// RelayNames returns the names of the relay interfaces in discovery order.
func (t *Table) RelayNames() []string {
	names := make([]string, len(t.relays))
	for i, r := range t.relays {
		names[i] = r.Name
	}
	return names
}

// IsSelf reports whether addr is one of our own socket addresses.
func (t *Table) IsSelf(addr netip.Addr) bool {
	_, ok := t.self[addr.Unmap()]
	return ok
}

// Resolve finds the interface whose networks contain addr. Relay interfaces
// are scanned before observed-only ones; the first match wins.
func (t *Table) Resolve(addr netip.Addr) (Origin, error) {
	for _, r := range t.relays {
		if r.Contains(addr) {
			return Origin{Name: r.Name}, nil
		}
	}
	for i := range t.observed {
		if t.observed[i].Contains(addr) {
			return Origin{Name: t.observed[i].Name, Filtered: true}, nil
		}
	}
	return Origin{}, errors.Attr(errors.New(errors.KindNotFound, "no interface for source address"),
		"src", addr.String())
}

// Close closes every egress socket and returns the first error.
func (t *Table) Close() error {
	var first error
	for _, r := range t.relays {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// InterfaceStatus describes one interface in a Snapshot.
type InterfaceStatus struct {
	Name     string   `json:"name"`
	Networks []string `json:"networks"`
	Bound    string   `json:"bound,omitempty"`
}

// Snapshot is the JSON view of the table served on /interfaces.
type Snapshot struct {
	Relay    []InterfaceStatus `json:"relay"`
	Observed []InterfaceStatus `json:"observed"`
}

func networkStrings(iface netifaces.Interface) []string {
	nets := make([]string, len(iface.Networks))
	for i, p := range iface.Networks {
		nets[i] = p.String()
	}
	return nets
}

// Snapshot returns the table contents for display.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		Relay:    make([]InterfaceStatus, 0, len(t.relays)),
		Observed: make([]InterfaceStatus, 0, len(t.observed)),
	}
	for _, r := range t.relays {
		s.Relay = append(s.Relay, InterfaceStatus{
			Name:     r.Name,
			Networks: networkStrings(r.Interface),
			Bound:    r.Addr.String(),
		})
	}
	for _, o := range t.observed {
		s.Observed = append(s.Observed, InterfaceStatus{
			Name:     o.Name,
			Networks: networkStrings(o),
		})
	}
	return s
}
