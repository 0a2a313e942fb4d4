package relay

import (
	"github.com/mojo333/mdns-repeater/internal/config"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

// Eligible reports whether iface takes part in relaying: it is up, not a
// loopback, has an IPv4 network and its name matches pattern.
func Eligible(iface netifaces.Interface, pattern *config.Pattern) bool {
	return iface.Up &&
		!iface.Loopback &&
		len(iface.Networks) > 0 &&
		pattern.Match(iface.Name)
}

// Select partitions ifaces into relay-eligible and observed-only interfaces.
// Every interface ends up in exactly one of the two slices, in input order.
func Select(ifaces []netifaces.Interface, pattern *config.Pattern) (eligible, observed []netifaces.Interface) {
	for _, iface := range ifaces {
		if Eligible(iface, pattern) {
			eligible = append(eligible, iface)
		} else {
			observed = append(observed, iface)
		}
	}
	return eligible, observed
}
