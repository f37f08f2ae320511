package model

// History records one value per epoch for each key ("loss", metric names
// and their "val_" counterparts).
type History struct {
	Epochs []int
	values map[string][]float64
	keys   []string
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{values: make(map[string][]float64)}
}

// Record appends the results of one epoch. Keys keep first-seen order.
func (h *History) Record(epoch int, logs map[string]float64, order []string) {
	h.Epochs = append(h.Epochs, epoch)
	for _, key := range order {
		if _, ok := h.values[key]; !ok {
			h.keys = append(h.keys, key)
		}
		h.values[key] = append(h.values[key], logs[key])
	}
}

// Keys returns the recorded keys in first-seen order.
func (h *History) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Get returns the per-epoch values of key, nil if never recorded.
func (h *History) Get(key string) []float64 {
	return h.values[key]
}

// Last returns the most recent value of key.
func (h *History) Last(key string) (float64, bool) {
	v := h.values[key]
	if len(v) == 0 {
		return 0, false
	}
	return v[len(v)-1], true
}
