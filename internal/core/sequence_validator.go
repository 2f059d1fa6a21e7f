package core

// SequenceValidator tracks the highest source sequence seen per partition.
// Every inbound stream carries full state per message (latest wins), so a
// stale sequence means skip, never error. Gaps are tolerated but counted.
// Not thread-safe — only accessed from the single-threaded risk core.
type SequenceValidator struct {
	lastSeq map[string]int64 // partition -> highest sequence applied
	metrics *SequenceMetrics
}

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{
		lastSeq: make(map[string]int64),
		metrics: NewSequenceMetrics(),
	}
}

// IsStale reports whether sourceSequence is at or behind the last applied
// sequence for the partition. Fresh sequences advance the watermark.
func (sv *SequenceValidator) IsStale(partition string, sourceSequence int64) bool {
	last, seen := sv.lastSeq[partition]

	if seen && sourceSequence <= last {
		sv.metrics.RecordStale(partition)
		return true
	}

	if seen && sourceSequence > last+1 {
		// Gap — acceptable for snapshot streams, but worth counting.
		sv.metrics.RecordGap(partition)
	}

	sv.lastSeq[partition] = sourceSequence
	return false
}

// LastSequence returns the highest sequence applied for a partition.
func (sv *SequenceValidator) LastSequence(partition string) int64 {
	return sv.lastSeq[partition]
}

// RestorePartition initializes a partition watermark (used during recovery).
func (sv *SequenceValidator) RestorePartition(partition string, seq int64) {
	sv.lastSeq[partition] = seq
}

// GetAllPartitions returns a copy of every partition watermark.
func (sv *SequenceValidator) GetAllPartitions() map[string]int64 {
	out := make(map[string]int64, len(sv.lastSeq))
	for k, v := range sv.lastSeq {
		out[k] = v
	}
	return out
}

// --- Metrics ---

// SequenceMetrics tracks staleness and gap stats.
// Not thread-safe — only accessed from the single-threaded risk core.
type SequenceMetrics struct {
	stale map[string]int64 // partition -> stale count
	gaps  map[string]int64 // partition -> gap count
}

func NewSequenceMetrics() *SequenceMetrics {
	return &SequenceMetrics{
		stale: make(map[string]int64),
		gaps:  make(map[string]int64),
	}
}

func (m *SequenceMetrics) RecordStale(partition string) {
	m.stale[partition]++
}

func (m *SequenceMetrics) RecordGap(partition string) {
	m.gaps[partition]++
}

func (m *SequenceMetrics) GetStale(partition string) int64 {
	return m.stale[partition]
}

func (m *SequenceMetrics) GetGaps(partition string) int64 {
	return m.gaps[partition]
}
