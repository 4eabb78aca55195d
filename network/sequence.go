package network

// SeqResult classifies a sequenced message arriving at a client.
type SeqResult int

const (
	// SeqApply means the message is the next one and should be applied.
	SeqApply SeqResult = iota
	// SeqDuplicate means the message was already seen and must be dropped.
	SeqDuplicate
	// SeqGap means at least one message was missed; the client must resync.
	SeqGap
)

// SeqTracker is the client half of the ordering contract: apply strictly
// consecutive sequence numbers, drop old ones, and never skip a gap.
type SeqTracker struct {
	last   uint64
	synced bool
}

// Observe classifies seq and advances the tracker when it is applied.
func (t *SeqTracker) Observe(seq uint64) SeqResult {
	if !t.synced {
		return SeqGap
	}
	switch {
	case seq <= t.last:
		return SeqDuplicate
	case seq == t.last+1:
		t.last = seq
		return SeqApply
	default:
		t.synced = false
		return SeqGap
	}
}

// Reset installs a snapshot's sequence number as the new baseline. Snapshots
// older than the current baseline are ignored and Reset reports false.
func (t *SeqTracker) Reset(seq uint64) bool {
	if t.synced && seq < t.last {
		return false
	}
	t.last = seq
	t.synced = true
	return true
}

// Last returns the last applied sequence number.
func (t *SeqTracker) Last() uint64 {
	return t.last
}
