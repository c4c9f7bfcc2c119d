package domain

import "time"

// DefaultOverdueThresholdHours is the age after which an unresolved
// ticket counts as overdue.
const DefaultOverdueThresholdHours = 20.0

// View is the read-time combination of a submission, its overlay and the
// derived age fields. It is never persisted.
type View struct {
	Submission
	Status           Status       `json:"status"`
	Note             string       `json:"note"`
	History          []AuditEntry `json:"history"`
	OverdueAlerted   bool         `json:"overdue_alerted"`
	OverdueAlertedTS string       `json:"overdue_alerted_ts,omitempty"`
	AgeHours         float64      `json:"age_hours"`
	Overdue          bool         `json:"overdue"`

	tsFallback bool
}

// TimestampFallback reports whether the submission timestamp could not be
// parsed and the view was aged as if submitted now.
func (v View) TimestampFallback() bool {
	return v.tsFallback
}

// Merge combines s with its overlay o as seen at now. It performs no I/O
// and does not retain o's history slice.
func Merge(s Submission, o Overlay, now time.Time, thresholdHours float64) View {
	o = o.Normalized().Clone()
	v := View{
		Submission:       s,
		Status:           o.Status,
		Note:             o.Note,
		History:          o.History,
		OverdueAlerted:   o.OverdueAlerted,
		OverdueAlertedTS: o.OverdueAlertedTS,
	}
	submitted, ok := ParseTimestamp(s.TS)
	if !ok {
		submitted = now
		v.tsFallback = true
	}
	age := now.Sub(submitted).Hours()
	if age < 0 {
		age = 0
	}
	v.AgeHours = age
	v.Overdue = age > thresholdHours && v.Status != StatusResolved
	return v
}
