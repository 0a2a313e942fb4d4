package relay

// dispatch sends payload unmodified to the mDNS group on every relay
// interface named in targets. A failing socket is logged and skipped.
func (r *Repeater) dispatch(payload []byte, targets NameSet) int {
	sent := 0
	for _, ri := range r.table.Relays() {
		if !targets.Has(ri.Name) {
			continue
		}
		if _, err := ri.conn.WriteTo(payload, nil, groupAddr); err != nil {
			r.logger.Warning("relay failed", "interface", ri.Name, "error", err)
			r.metrics.SendFailed(ri.Name)
			continue
		}
		r.logger.Debug("relayed", "interface", ri.Name, "bytes", len(payload))
		r.metrics.PacketRelayed(ri.Name)
		sent++
	}
	return sent
}
