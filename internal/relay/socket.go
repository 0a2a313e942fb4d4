package relay

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/mojo333/mdns-repeater/internal/errors"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

// mDNS rendezvous point (RFC 6762).
const (
	MDNSMcastAddr = "224.0.0.251"
	MDNSMcastPort = 5353

	// BufferSize is the receive buffer; longer datagrams are truncated.
	BufferSize = 4096

	multicastTTL = 255
)

var (
	groupIP   = net.IPv4(224, 0, 0, 251)
	groupAddr = &net.UDPAddr{IP: groupIP, Port: MDNSMcastPort}
)

// packetWriter is the sending half of an ipv4.PacketConn.
type packetWriter interface {
	WriteTo(b []byte, cm *ipv4.ControlMessage, dst net.Addr) (int, error)
	Close() error
}

// PacketReader is the receiving half of an ipv4.PacketConn.
type PacketReader interface {
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	Close() error
}

// RelayInterface is a relay-eligible interface with its egress socket.
type RelayInterface struct {
	netifaces.Interface
	// Addr is the address the egress socket is bound to.
	Addr netip.Addr

	conn packetWriter
}

// Close closes the egress socket.
func (ri *RelayInterface) Close() error {
	if ri.conn == nil {
		return nil
	}
	return ri.conn.Close()
}

// listenReuse opens a UDP socket with SO_REUSEADDR and SO_REUSEPORT set, so
// that several sockets (ours and other mDNS responders) can share port 5353.
func listenReuse(ctx context.Context, address string) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, rawConn syscall.RawConn) error {
			var controlError error
			if err := rawConn.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					controlError = fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					controlError = fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
				}
			}); err != nil {
				return fmt.Errorf("raw control error: %w", err)
			}
			return controlError
		},
	}
	return lc.ListenPacket(ctx, "udp4", address)
}

// BindInterface opens the egress socket for iface on its first IPv4 address
// and joins the mDNS group there.
func BindInterface(ctx context.Context, iface netifaces.Interface) (*RelayInterface, error) {
	addr, ok := iface.FirstIPv4()
	if !ok {
		return nil, errors.Attr(errors.New(errors.KindValidation, "interface has no IPv4 address"),
			"interface", iface.Name)
	}

	bind := netip.AddrPortFrom(addr, MDNSMcastPort).String()
	conn, err := listenReuse(ctx, bind)
	if err != nil {
		return nil, errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "listen %s", bind),
			"interface", iface.Name)
	}

	pc := ipv4.NewPacketConn(conn)
	ifi := &net.Interface{Index: iface.Index, Name: iface.Name}

	fail := func(err error, what string) (*RelayInterface, error) {
		conn.Close()
		return nil, errors.Attr(errors.Wrapf(err, errors.KindUnavailable, "%s on %s", what, iface.Name),
			"interface", iface.Name)
	}
	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: groupIP}); err != nil {
		return fail(err, "join group "+MDNSMcastAddr)
	}
	if err := pc.SetMulticastInterface(ifi); err != nil {
		return fail(err, "set multicast interface")
	}
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		return fail(err, "set multicast TTL")
	}

	return &RelayInterface{Interface: iface, Addr: addr, conn: pc}, nil
}

// BindInterfaces binds every eligible interface. On failure the sockets
// opened so far are closed.
func BindInterfaces(ctx context.Context, eligible []netifaces.Interface) ([]*RelayInterface, error) {
	relays := make([]*RelayInterface, 0, len(eligible))
	for _, iface := range eligible {
		ri, err := BindInterface(ctx, iface)
		if err != nil {
			for _, r := range relays {
				r.Close()
			}
			return nil, err
		}
		relays = append(relays, ri)
	}
	return relays, nil
}

// Ingress is the shared receive socket.
type Ingress struct {
	*ipv4.PacketConn
	// Addr is the local address the socket is bound to.
	Addr netip.Addr
}

// ListenIngress opens the shared receive socket on the mDNS group and joins
// the group on the default interface.
func ListenIngress(ctx context.Context) (*Ingress, error) {
	bind := fmt.Sprintf("%s:%d", MDNSMcastAddr, MDNSMcastPort)
	conn, err := listenReuse(ctx, bind)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "listen %s", bind)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: groupIP}); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, errors.KindUnavailable, "join group %s", MDNSMcastAddr)
	}

	var addr netip.Addr
	if ua, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		addr = ua.AddrPort().Addr().Unmap()
	}
	return &Ingress{PacketConn: pc, Addr: addr}, nil
}
