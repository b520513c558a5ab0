package news

import "sync"

// Accumulator is the ordered, URL-unique result set of one run.
// It is safe for concurrent use.
type Accumulator struct {
	mu   sync.Mutex
	rows []Row
	seen map[string]struct{}
}

func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// TryAppend numbers and appends r unless its Link is already present.
func (a *Accumulator) TryAppend(r Row) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seen[r.Link]; dup {
		return false
	}
	a.seen[r.Link] = struct{}{}
	r.Nomor = len(a.rows) + 1
	a.rows = append(a.rows, r)
	return true
}

func (a *Accumulator) Contains(link string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.seen[link]
	return ok
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Snapshot returns a copy of the rows in insertion order.
func (a *Accumulator) Snapshot() []Row {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Row, len(a.rows))
	copy(out, a.rows)
	return out
}
