//go:build !linux

package netifaces

import "net"

func listInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]Interface, 0, len(ifaces))
	for _, ni := range ifaces {
		iface := Interface{
			Name:     ni.Name,
			Index:    ni.Index,
			MAC:      ni.HardwareAddr,
			Up:       ni.Flags&net.FlagUp != 0,
			Loopback: ni.Flags&net.FlagLoopback != 0,
		}
		addrs, err := ni.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if p, ok := prefixFromIPNet(ipnet); ok {
				iface.Networks = append(iface.Networks, p)
			}
		}
		result = append(result, iface)
	}
	return result, nil
}
