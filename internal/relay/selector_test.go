package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mojo333/mdns-repeater/internal/config"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

func TestSelect(t *testing.T) {
	down := iface("lan-down", "10.9.0.1/24")
	down.Up = false
	lo := iface("lo", "127.0.0.1/8")
	lo.Loopback = true
	loLan := iface("lan-lo", "127.0.1.1/24")
	loLan.Loopback = true

	ifaces := []netifaces.Interface{
		iface("lan-home", "192.168.1.1/24"),
		iface("wan0", "203.0.113.2/24"),
		down,
		lo,
		loLan,
		iface("lan-noaddr", ""),
		iface("lan-services", "192.168.2.1/24"),
	}

	eligible, observed := Select(ifaces, config.MustCompile("^lan.*$"))

	var eligibleNames, observedNames []string
	for _, i := range eligible {
		eligibleNames = append(eligibleNames, i.Name)
	}
	for _, i := range observed {
		observedNames = append(observedNames, i.Name)
	}
	assert.Equal(t, []string{"lan-home", "lan-services"}, eligibleNames)
	assert.Equal(t, []string{"wan0", "lan-down", "lo", "lan-lo", "lan-noaddr"}, observedNames)
	assert.Len(t, append(eligible, observed...), len(ifaces))
}

func TestEligibleWholeStringMatch(t *testing.T) {
	i := iface("xlan0", "192.168.1.1/24")
	assert.False(t, Eligible(i, config.MustCompile("lan0")))
	assert.True(t, Eligible(i, config.MustCompile(".*lan0")))
	assert.False(t, Eligible(i, nil))
}
