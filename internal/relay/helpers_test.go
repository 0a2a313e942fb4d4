package relay

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/ipv4"

	"github.com/mojo333/mdns-repeater/internal/config"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

type sentPacket struct {
	payload []byte
	dst     net.Addr
}

type fakeWriter struct {
	mu       sync.Mutex
	sent     []sentPacket
	err      error
	closeErr error
	closed   bool
	notify   chan struct{}
}

func (w *fakeWriter) WriteTo(b []byte, _ *ipv4.ControlMessage, dst net.Addr) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.sent = append(w.sent, sentPacket{payload: append([]byte(nil), b...), dst: dst})
	if w.notify != nil {
		w.notify <- struct{}{}
	}
	return len(b), nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.closeErr
}

func (w *fakeWriter) packets() []sentPacket {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sentPacket(nil), w.sent...)
}

type readResult struct {
	data []byte
	from net.Addr
	err  error
}

type fakeReader struct {
	results chan readResult
	closed  chan struct{}
	once    sync.Once
}

func newFakeReader(results ...readResult) *fakeReader {
	r := &fakeReader{
		results: make(chan readResult, len(results)),
		closed:  make(chan struct{}),
	}
	for _, res := range results {
		r.results <- res
	}
	return r
}

func (r *fakeReader) ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error) {
	select {
	case res := <-r.results:
		if res.err != nil {
			return 0, nil, nil, res.err
		}
		return copy(b, res.data), nil, res.from, nil
	case <-r.closed:
		return 0, nil, nil, net.ErrClosed
	}
}

func (r *fakeReader) Close() error {
	err := net.ErrClosed
	r.once.Do(func() {
		close(r.closed)
		err = nil
	})
	return err
}

// testContext mirrors testing.T.Context (Go 1.24+): canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func iface(name, cidr string) netifaces.Interface {
	i := netifaces.Interface{Name: name, Up: true}
	if cidr != "" {
		i.Networks = []netip.Prefix{netip.MustParsePrefix(cidr)}
	}
	return i
}

func relayOn(name, cidr string, w *fakeWriter) *RelayInterface {
	ri := &RelayInterface{Interface: iface(name, cidr), conn: w}
	ri.Addr = ri.Networks[0].Addr()
	return ri
}

func udpFrom(addr string) *net.UDPAddr {
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(netip.MustParseAddr(addr), MDNSMcastPort))
}

func query(t *testing.T, names ...string) []byte {
	t.Helper()
	m := new(dns.Msg)
	for _, name := range names {
		m.Question = append(m.Question, dns.Question{Name: dns.Fqdn(name), Qtype: dns.TypePTR, Qclass: dns.ClassINET})
	}
	buf, err := m.Pack()
	require.NoError(t, err)
	return buf
}

func response(t *testing.T, names ...string) []byte {
	t.Helper()
	m := new(dns.Msg)
	m.Response = true
	m.Authoritative = true
	for _, name := range names {
		m.Answer = append(m.Answer, &dns.PTR{
			Hdr: dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 120},
			Ptr: "printer." + dns.Fqdn(name),
		})
	}
	buf, err := m.Pack()
	require.NoError(t, err)
	return buf
}

func rule(from, to string, questions, answers *config.Pattern) config.Rule {
	return config.Rule{
		From:           config.MustCompile(from),
		To:             config.MustCompile(to),
		AllowQuestions: questions,
		AllowAnswers:   answers,
	}
}
