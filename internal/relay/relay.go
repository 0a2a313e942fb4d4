// Package relay implements the mDNS forwarding engine: interface selection,
// socket setup, origin resolution, loop prevention, rule evaluation and
// dispatch.
package relay

import (
	"context"
	"log/slog"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/mojo333/mdns-repeater/internal/config"
	"github.com/mojo333/mdns-repeater/internal/errors"
	"github.com/mojo333/mdns-repeater/internal/logger"
	"github.com/mojo333/mdns-repeater/internal/metrics"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
)

// Options configures a Repeater.
type Options struct {
	Config  *config.Config
	Table   *Table
	Ingress PacketReader
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Repeater relays mDNS datagrams between interfaces according to rules.
type Repeater struct {
	rules      []config.Rule
	candidates []string
	table      *Table
	ingress    PacketReader
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Repeater. Logger and Metrics are optional.
func New(opts Options) (*Repeater, error) {
	if opts.Config == nil {
		return nil, errors.New(errors.KindInternal, "relay: missing config")
	}
	if opts.Table == nil {
		return nil, errors.New(errors.KindInternal, "relay: missing interface table")
	}
	if opts.Ingress == nil {
		return nil, errors.New(errors.KindInternal, "relay: missing ingress socket")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Repeater{
		rules:      opts.Config.Rules,
		candidates: opts.Table.RelayNames(),
		table:      opts.Table,
		ingress:    opts.Ingress,
		logger:     log,
		metrics:    opts.Metrics,
	}, nil
}

// Open discovers the relay interfaces among ifaces, binds their sockets and
// the ingress socket, and returns a ready Repeater.
func Open(ctx context.Context, cfg *config.Config, ifaces []netifaces.Interface, log *logger.Logger, m *metrics.Metrics) (*Repeater, error) {
	if log == nil {
		log = logger.Discard()
	}

	eligible, observed := Select(ifaces, cfg.Interfaces)
	relays, err := BindInterfaces(ctx, eligible)
	if err != nil {
		return nil, err
	}

	ingress, err := ListenIngress(ctx)
	if err != nil {
		for _, r := range relays {
			r.Close()
		}
		return nil, err
	}

	table := NewTable(relays, observed, ingress.Addr)

	for _, r := range relays {
		log.Info("relaying on interface", "interface", r.Name, "addr", r.Addr, "networks", r.Interface.String())
	}
	for _, o := range observed {
		log.Info("observing interface", "interface", o.Name, "networks", o.String())
	}
	for i, rule := range cfg.Rules {
		if rule.Inert() {
			log.Warning("rule has neither allow_questions nor allow_answers and never triggers",
				"rule", i, "definition", rule.String())
		}
	}
	if len(relays) == 0 {
		log.Warning("no interface matches the interfaces pattern", "pattern", cfg.Interfaces.String())
	}
	m.SetInterfaces(len(relays), len(observed))

	return New(Options{Config: cfg, Table: table, Ingress: ingress, Logger: log, Metrics: m})
}

// Table returns the interface table.
func (r *Repeater) Table() *Table {
	return r.table
}

// Handle runs one datagram through the pipeline and transmits it. It
// returns the destination set and, when the packet was dropped before rule
// evaluation, the drop reason.
func (r *Repeater) Handle(payload []byte, src netip.Addr) (NameSet, string) {
	src = src.Unmap()
	r.metrics.PacketReceived()

	if r.table.IsSelf(src) {
		r.metrics.PacketDropped(metrics.ReasonSelf)
		return nil, metrics.ReasonSelf
	}

	origin, err := r.table.Resolve(src)
	if err != nil {
		r.logger.Warning("no interface found", "src", src)
		r.metrics.PacketDropped(metrics.ReasonUnknownOrigin)
		return nil, metrics.ReasonUnknownOrigin
	}
	if origin.Filtered {
		r.metrics.PacketDropped(metrics.ReasonFiltered)
		return nil, metrics.ReasonFiltered
	}

	pkt, err := Classify(payload)
	if err != nil {
		r.logger.Warning("malformed packet", "interface", origin.Name, "src", src, "error", err)
		r.metrics.PacketDropped(metrics.ReasonMalformed)
		return nil, metrics.ReasonMalformed
	}
	if r.logger.Enabled(slog.LevelInfo) {
		r.logger.Info("packet received",
			"interface", origin.Name,
			"src", src,
			"questions", pkt.Questions.Sorted(),
			"answers", pkt.Answers.Sorted())
	}

	targets := Evaluate(origin.Name, pkt, r.rules, r.candidates)
	if len(targets) == 0 {
		return targets, ""
	}
	r.logger.Info("relay targets", "interface", origin.Name, "targets", targets.Sorted())
	r.dispatch(payload, targets)
	return targets, ""
}

// Run processes datagrams from the ingress socket one at a time until ctx is
// cancelled or the socket fails. Cancellation closes the ingress socket and
// Run returns nil.
func (r *Repeater) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.ingress.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, BufferSize)
	for {
		n, _, from, err := r.ingress.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
				return nil
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			r.logger.Error("receive failed, stopping", "error", err)
			return errors.Wrap(err, errors.KindUnavailable, "receive from ingress socket")
		}
		if n == len(buf) {
			r.logger.Debug("datagram fills the receive buffer and may be truncated", "bytes", n)
		}

		src, ok := sourceAddr(from)
		if !ok {
			continue
		}
		r.Handle(buf[:n], src)
	}
}

// Close releases the ingress and egress sockets. Sockets already closed
// (e.g. the ingress after cancellation) are not an error.
func (r *Repeater) Close() error {
	var first error
	for _, err := range []error{r.ingress.Close(), r.table.Close()} {
		if err != nil && !errors.Is(err, net.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}

func sourceAddr(from net.Addr) (netip.Addr, bool) {
	ua, ok := from.(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, false
	}
	return ua.AddrPort().Addr().Unmap(), true
}
