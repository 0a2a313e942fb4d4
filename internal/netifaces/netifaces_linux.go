//go:build linux

package netifaces

import (
	"net"

	"github.com/vishvananda/netlink"
)

func listInterfaces() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}

	result := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		iface := Interface{
			Name:     attrs.Name,
			Index:    attrs.Index,
			MAC:      attrs.HardwareAddr,
			Up:       attrs.Flags&net.FlagUp != 0,
			Loopback: attrs.Flags&net.FlagLoopback != 0,
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			// The link may have vanished between the two dumps.
			continue
		}
		for _, addr := range addrs {
			if p, ok := prefixFromIPNet(addr.IPNet); ok {
				iface.Networks = append(iface.Networks, p)
			}
		}
		result = append(result, iface)
	}
	return result, nil
}
