package articles

// HeadingGroup is one heading with the number of articles listed under it.
type HeadingGroup struct {
	Key   string `json:"key" yaml:"key"`
	Link  string `json:"link" yaml:"link"`
	Count int    `json:"count" yaml:"count"`
}

// HeadingCounter counts articles per heading for one evaluation.
type HeadingCounter struct {
	order  []string
	counts map[string]int
	links  map[string]string
}

func NewHeadingCounter() *HeadingCounter {
	return &HeadingCounter{
		counts: make(map[string]int),
		links:  make(map[string]string),
	}
}

// Increment counts one more article under key and returns the running count.
func (h *HeadingCounter) Increment(key string) int {
	if _, seen := h.counts[key]; !seen {
		h.order = append(h.order, key)
	}
	h.counts[key]++
	return h.counts[key]
}

func (h *HeadingCounter) setLink(key, link string) {
	if _, ok := h.links[key]; !ok {
		h.links[key] = link
	}
}

// Count returns the number of articles counted under key.
func (h *HeadingCounter) Count(key string) int {
	return h.counts[key]
}

// Len returns the number of distinct headings.
func (h *HeadingCounter) Len() int {
	return len(h.order)
}

// Groups returns the headings in first-seen order.
func (h *HeadingCounter) Groups() []HeadingGroup {
	groups := make([]HeadingGroup, 0, len(h.order))
	for _, key := range h.order {
		groups = append(groups, HeadingGroup{Key: key, Link: h.links[key], Count: h.counts[key]})
	}
	return groups
}
