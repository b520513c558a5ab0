package metrics

import (
	"sync"
	"time"
)

// Metrics counts what happened during one scraping run. Safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	// Counters
	KeywordsSearched int64
	SearchErrors     int64
	EntriesFound     int64
	ResolveFailures  int64
	ExtractFailures  int64
	Accepted         int64
	Rejected         int64
	DuplicatesFound  int64
	SummaryFailures  int64

	// Timings
	TotalKeywordTime   time.Duration
	SlowestKeyword     string
	SlowestKeywordTime time.Duration
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) add(counter *int64, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += n
}

func (m *Metrics) IncrementSearchErrors()    { m.add(&m.SearchErrors, 1) }
func (m *Metrics) AddEntriesFound(n int)     { m.add(&m.EntriesFound, int64(n)) }
func (m *Metrics) IncrementResolveFailures() { m.add(&m.ResolveFailures, 1) }
func (m *Metrics) IncrementExtractFailures() { m.add(&m.ExtractFailures, 1) }
func (m *Metrics) IncrementAccepted()        { m.add(&m.Accepted, 1) }
func (m *Metrics) IncrementRejected()        { m.add(&m.Rejected, 1) }
func (m *Metrics) IncrementDuplicates()      { m.add(&m.DuplicatesFound, 1) }
func (m *Metrics) IncrementSummaryFailures() { m.add(&m.SummaryFailures, 1) }

// RecordKeyword stores how long one keyword's batch took.
func (m *Metrics) RecordKeyword(keyword string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.KeywordsSearched++
	m.TotalKeywordTime += d
	if d > m.SlowestKeywordTime {
		m.SlowestKeywordTime = d
		m.SlowestKeyword = keyword
	}
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if m.KeywordsSearched > 0 {
		avg = m.TotalKeywordTime / time.Duration(m.KeywordsSearched)
	}

	return map[string]interface{}{
		"keywords_searched":       m.KeywordsSearched,
		"search_errors":           m.SearchErrors,
		"entries_found":           m.EntriesFound,
		"resolve_failures":        m.ResolveFailures,
		"extract_failures":        m.ExtractFailures,
		"accepted":                m.Accepted,
		"rejected":                m.Rejected,
		"duplicates_filtered":     m.DuplicatesFound,
		"summary_failures":        m.SummaryFailures,
		"average_keyword_time_ms": avg.Milliseconds(),
		"slowest_keyword":         m.SlowestKeyword,
		"slowest_keyword_time_ms": m.SlowestKeywordTime.Milliseconds(),
	}
}
