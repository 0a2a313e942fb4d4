// Package netifaces takes a read-only snapshot of the host's network
// interfaces and their IPv4 networks.
package netifaces

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Interface is a host interface as seen at startup.
type Interface struct {
	Name     string
	Index    int
	MAC      net.HardwareAddr
	Up       bool
	Loopback bool
	// Networks holds each assigned IPv4 address together with its prefix
	// length. Addr() of each prefix is the interface address itself.
	Networks []netip.Prefix
}

// Interfaces returns a snapshot of all host interfaces with their IPv4 networks.
func Interfaces() ([]Interface, error) {
	ifaces, err := listInterfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	return ifaces, nil
}

// Contains reports whether addr falls in one of the interface's networks.
func (i *Interface) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range i.Networks {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// FirstIPv4 returns the first assigned IPv4 address.
func (i *Interface) FirstIPv4() (netip.Addr, bool) {
	for _, p := range i.Networks {
		if p.Addr().Is4() {
			return p.Addr(), true
		}
	}
	return netip.Addr{}, false
}

func (i Interface) String() string {
	nets := make([]string, len(i.Networks))
	for n, p := range i.Networks {
		nets[n] = p.String()
	}
	return fmt.Sprintf("%s[%s]", i.Name, strings.Join(nets, ","))
}

// prefixFromIPNet converts an IPv4 net.IPNet, keeping the host address.
func prefixFromIPNet(ipnet *net.IPNet) (netip.Prefix, bool) {
	if ipnet == nil {
		return netip.Prefix{}, false
	}
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return netip.Prefix{}, false
	}
	addr, ok := netip.AddrFromSlice(ip4)
	if !ok {
		return netip.Prefix{}, false
	}
	ones, bits := ipnet.Mask.Size()
	switch bits {
	case 32:
	case 128:
		// IPv4 address with a 16-byte mask.
		ones -= 96
	default:
		return netip.Prefix{}, false
	}
	if ones < 0 {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(addr, ones), true
}
