package engine

import "time"

// PendingBatch is the in-memory record of one slice. Never persisted: if the
// process dies mid-sequence, the next epoch re-reads the on-chain withheld
// total and plans fresh.
type PendingBatch struct {
	Index     int
	TargetRaw uint64
	StartedAt time.Time

	Succeeded        bool
	HarvestedRaw     uint64
	SwapSignature    string
	ReceivedLamports uint64
	Err              string
}

// PlanSlices splits the harvestable total into slice targets. At or under
// the ceiling the whole amount runs as a single pass. Over the ceiling it is
// split into n equal slices with the last slice absorbing the division
// remainder, so the targets always sum exactly to total.
func PlanSlices(total, ceiling uint64, n int) []uint64 {
	if total == 0 {
		return nil
	}
	if n <= 1 || total <= ceiling {
		return []uint64{total}
	}
	return SplitSlices(total, n)
}

// SplitSlices divides total into n parts, last part absorbs the remainder.
func SplitSlices(total uint64, n int) []uint64 {
	if n <= 1 {
		return []uint64{total}
	}
	each := total / uint64(n)
	slices := make([]uint64, n)
	var allocated uint64
	for i := 0; i < n-1; i++ {
		slices[i] = each
		allocated += each
	}
	slices[n-1] = total - allocated
	return slices
}
