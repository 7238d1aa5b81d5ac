package telemetry

// CurrentHistory keeps the last N absolute current samples in mA.
// The oldest sample is evicted first.
type CurrentHistory struct {
	maxRecordCount int
	samples        []int
}

// NewCurrentHistory returns an empty history holding at most maxRecordCount
// samples. A non-positive maxRecordCount means the default history size.
func NewCurrentHistory(maxRecordCount int) *CurrentHistory {
	if maxRecordCount <= 0 {
		maxRecordCount = DefaultTuning().HistorySize
	}
	return &CurrentHistory{
		maxRecordCount: maxRecordCount,
		samples:        make([]int, 0, maxRecordCount),
	}
}

// Add appends the absolute value of currentMA.
func (h *CurrentHistory) Add(currentMA int) {
	if len(h.samples) >= h.maxRecordCount {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, abs(currentMA))
}

// Clear removes all samples.
func (h *CurrentHistory) Clear() {
	h.samples = h.samples[:0]
}

// Len returns the number of samples held.
func (h *CurrentHistory) Len() int {
	return len(h.samples)
}

// Samples returns a copy of the samples, oldest first.
func (h *CurrentHistory) Samples() []int {
	out := make([]int, len(h.samples))
	copy(out, h.samples)
	return out
}

// Average returns the mean sample truncated to whole mA, and false if the
// history is empty.
func (h *CurrentHistory) Average() (int, bool) {
	if len(h.samples) == 0 {
		return 0, false
	}
	sum := 0
	for _, s := range h.samples {
		sum += s
	}
	return sum / len(h.samples), true
}
