package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Counter names recorded by the ticket engine.
const (
	MetricTimestampFallback   = "timestamp_fallback"
	MetricCorruptLogRecord    = "corrupt_log_record"
	MetricOverlayReadFallback = "overlay_read_fallback"
	MetricAlertSent           = "overdue_alert_sent"
	MetricAlertFailed         = "overdue_alert_failed"
	MetricNotifySent          = "notification_sent"
	MetricNotifyFailed        = "notification_failed"
	MetricInvalidClientEmail  = "invalid_client_email"
	MetricSubmissionAppended  = "submission_appended"
	MetricTicketUpdated       = "ticket_updated"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	counters     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		counters:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Inc increments a named engine counter.
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

// Add increments a named engine counter by n.
func (m *Metrics) Add(name string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += n
}

// Count returns the current value of a named counter.
func (m *Metrics) Count(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Counters map[string]int64 `json:"counters"`
	Requests map[string]int64 `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: map[string]int64{}, Requests: map[string]int64{}, Errors: map[string]int64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.counters {
		snap.Counters[k] = v
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	return snap
}

// Names returns the counter names that have been recorded, sorted.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Counters))
	for k := range s.Counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
