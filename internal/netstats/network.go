package netstats

// NetworkMetric enumerates the stock network statistics.
type NetworkMetric int32

// Stock network metrics.
const (
	BytesSent NetworkMetric = iota
	BytesReceived
	PacketsSent
	PacketsReceived
	RTT
	PacketLoss
	ConnectedClients
	RPCCount
	CPUUsage
	MemoryUsage
	MessagesSent
)

// NetworkMetricTypeName is the registry name of NetworkMetric.
const NetworkMetricTypeName = "NetworkMetric"

var networkMetadata = map[NetworkMetric]Metadata{
	BytesSent:        {Name: "BytesSent", DisplayName: "Bytes Sent", Units: Bytes, Kind: KindCounter},
	BytesReceived:    {Name: "BytesReceived", DisplayName: "Bytes Received", Units: Bytes, Kind: KindCounter},
	PacketsSent:      {Name: "PacketsSent", DisplayName: "Packets Sent", Kind: KindCounter},
	PacketsReceived:  {Name: "PacketsReceived", DisplayName: "Packets Received", Kind: KindCounter},
	RTT:              {Name: "RTT", DisplayName: "Round Trip Time", Units: Seconds, Kind: KindGauge},
	PacketLoss:       {Name: "PacketLoss", DisplayName: "Packet Loss", Kind: KindGauge, DisplayAsPercentage: true},
	ConnectedClients: {Name: "ConnectedClients", DisplayName: "Connected Clients", Kind: KindGauge},
	RPCCount:         {Name: "RPCCount", DisplayName: "RPC Count", Kind: KindCounter},
	CPUUsage:         {Name: "CPUUsage", DisplayName: "CPU Usage", Kind: KindGauge, DisplayAsPercentage: true},
	MemoryUsage:      {Name: "MemoryUsage", DisplayName: "Memory Usage", Units: Bytes, Kind: KindGauge},
	MessagesSent:     {Name: "MessagesSent", DisplayName: "Messages Sent", Kind: KindCounter},
}

// RegisterNetworkMetrics registers NetworkMetric in r. It is safe to call repeatedly.
func RegisterNetworkMetrics(r *Registry) (Enum[NetworkMetric], error) {
	return RegisterEnum(r, NetworkMetricTypeName, networkMetadata)
}

// Payload type names of the stock event structs.
const (
	MessageEventType = "MessageEvent"
	RPCEventType     = "RPCEvent"
)

// MessageEvent records one network message.
type MessageEvent struct {
	ConnectionID uint64
	Bytes        int64
	Channel      uint32
}

// RPCEvent records one remote procedure call.
type RPCEvent struct {
	ObjectID   uint64
	MethodHash uint32
	Bytes      int64
}
