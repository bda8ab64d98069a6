package monitor

import display "github.com/vshulcz/netstats/internal/monitor"

// DefaultDisplayConfiguration shows the stock network metrics written by the host collector.
func DefaultDisplayConfiguration() display.Configuration {
	perSecond := display.DefaultCounterConfiguration()

	perFrame := display.DefaultCounterConfiguration()
	perFrame.SampleRate = display.PerFrame

	loss := perFrame
	lossLimit := 0.05
	loss.HighlightUpperBound = &lossLimit

	cfg := display.DefaultConfiguration()
	cfg.Elements = []display.DisplayElement{
		{Type: display.ElementCounter, Label: "Bytes Sent", Stats: []string{"NetworkMetric.BytesSent"}, Counter: perSecond},
		{Type: display.ElementCounter, Label: "Bytes Received", Stats: []string{"NetworkMetric.BytesReceived"}, Counter: perSecond},
		{Type: display.ElementCounter, Label: "Messages Sent", Stats: []string{"NetworkMetric.MessagesSent"}, Counter: perSecond},
		{Type: display.ElementCounter, Label: "Round Trip Time", Stats: []string{"NetworkMetric.RTT"}, Counter: perFrame},
		{Type: display.ElementCounter, Label: "Packet Loss", Stats: []string{"NetworkMetric.PacketLoss"}, Counter: loss},
		{Type: display.ElementCounter, Label: "CPU Usage", Stats: []string{"NetworkMetric.CPUUsage"}, Counter: perFrame},
		{Type: display.ElementCounter, Label: "Memory Usage", Stats: []string{"NetworkMetric.MemoryUsage"}, Counter: perFrame},
		{
			Type:  display.ElementGraph,
			Label: "Traffic",
			Stats: []string{"NetworkMetric.BytesSent", "NetworkMetric.BytesReceived"},
			Graph: display.DefaultGraphConfiguration(),
		},
	}
	return cfg.Normalize()
}
