package audit

import (
	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/netstats"
)

// Event describes one accepted frame: when it arrived, which stats it carried,
// and where it came from.
type Event struct {
	Timestamp    int64    `json:"ts"`
	SessionID    string   `json:"session_id"`
	ConnectionID uint64   `json:"connection_id"`
	Metrics      []string `json:"metrics"`
	IPAddress    string   `json:"ip_address"`
}

// NewEvent builds the audit record of a stored capture and its decoded collection.
func NewEvent(reg *netstats.Registry, capture domain.Capture, c *netstats.MetricCollection, ip string) Event {
	return Event{
		Timestamp:    capture.ReceivedAt.Unix(),
		SessionID:    capture.SessionID,
		ConnectionID: capture.ConnectionID,
		Metrics:      StatNames(reg, c),
		IPAddress:    ip,
	}
}

// StatNames lists the stats carried by c: counters, gauges, timers, then events.
func StatNames(reg *netstats.Registry, c *netstats.MetricCollection) []string {
	names := make([]string, 0, c.Len())
	for id := range c.Counters() {
		names = append(names, reg.Name(id))
	}
	for id := range c.Gauges() {
		names = append(names, reg.Name(id))
	}
	for id := range c.Timers() {
		names = append(names, reg.Name(id))
	}
	for id := range c.Events() {
		names = append(names, reg.Name(id))
	}
	return names
}
