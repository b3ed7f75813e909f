// Package stats keeps the process-wide traffic totals and publishes
// periodic throughput snapshots.
package stats

// Counters are cumulative process-wide totals.
// Mutated only by the reactor goroutine; other goroutines read Snapshots.
type Counters struct {
	BytesReceived    uint64
	PacketsReceived  uint64
	BytesSent        uint64
	PacketsSent      uint64
	MediaBytesSent   uint64
	MediaPacketsSent uint64
}
