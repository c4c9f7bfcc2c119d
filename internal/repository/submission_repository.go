package repository

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/intake-desk/internal/domain"
)

// SubmissionLog is the append-only store of intake records.
type SubmissionLog interface {
	// Append durably persists s before returning nil.
	Append(ctx context.Context, s domain.Submission) error
	// ReadAll returns the materialized log: one record per ticket, newest first.
	ReadAll(ctx context.Context) ([]domain.Submission, error)
}

type logKey struct {
	at  time.Time
	ok  bool
	raw string
}

func keyOf(s domain.Submission) logKey {
	at, ok := domain.ParseTimestamp(s.TS)
	return logKey{at: at, ok: ok, raw: s.TS}
}

// newer reports whether a is strictly more recent than b. Parsed instants
// compare in UTC; an unparsable timestamp is older than any parsable one.
func (a logKey) newer(b logKey) bool {
	switch {
	case a.ok && b.ok:
		return a.at.After(b.at)
	case a.ok != b.ok:
		return a.ok
	default:
		return a.raw > b.raw
	}
}

// Materialize collapses records sharing a ticket to the most recent one
// and orders the result newest first. On equal timestamps the record seen
// first in the log is kept. Records without a ticket are dropped.
func Materialize(records []domain.Submission) []domain.Submission {
	latest := make(map[string]int, len(records))
	out := make([]domain.Submission, 0, len(records))
	keys := make([]logKey, 0, len(records))
	for _, rec := range records {
		if rec.Ticket == "" {
			continue
		}
		k := keyOf(rec)
		if idx, seen := latest[rec.Ticket]; seen {
			if k.newer(keys[idx]) {
				out[idx] = rec
				keys[idx] = k
			}
			continue
		}
		latest[rec.Ticket] = len(out)
		out = append(out, rec)
		keys = append(keys, k)
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := keys[order[i]], keys[order[j]]
		if a.newer(b) {
			return true
		}
		if b.newer(a) {
			return false
		}
		return out[order[i]].Ticket < out[order[j]].Ticket
	})
	sorted := make([]domain.Submission, len(out))
	for i, idx := range order {
		sorted[i] = out[idx]
	}
	return sorted
}

// FindTicket returns the materialized record for ticket.
func FindTicket(records []domain.Submission, ticket string) (domain.Submission, bool) {
	for _, rec := range records {
		if rec.Ticket == ticket {
			return rec, true
		}
	}
	return domain.Submission{}, false
}
