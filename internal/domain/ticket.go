package domain

import (
	"regexp"
	"strings"
)

// Status enumerates workflow states held in the overlay.
type Status string

const (
	StatusOpen     Status = "open"
	StatusWIP      Status = "wip"
	StatusResolved Status = "resolved"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusOpen, StatusWIP, StatusResolved}

// ParseStatus normalizes s and reports whether it names a valid status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusOpen, StatusWIP, StatusResolved:
		return st, true
	}
	return st, false
}

// Submission is one immutable intake record in the event log.
type Submission struct {
	Ticket      string   `json:"ticket"`
	Kind        Kind     `json:"kind"`
	Fields      Fields   `json:"fields"`
	Attachments []string `json:"attachments"`
	ClientName  string   `json:"client_name"`
	ClientEmail string   `json:"client_email"`
	Meta        Fields   `json:"meta"`
	TS          string   `json:"ts"`
}

// ContactEmail returns the client address on file, falling back to the
// Email field captured by the intake form.
func (s Submission) ContactEmail() string {
	if e := strings.TrimSpace(s.ClientEmail); e != "" {
		return e
	}
	v, _ := s.Fields.Get(LabelEmail)
	return strings.TrimSpace(v)
}

// ContactName returns the best human label for the submitter.
func (s Submission) ContactName() string {
	for _, label := range []string{LabelName, LabelOrganisation} {
		if v, ok := s.Fields.Get(label); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if s.ClientName != "" {
		return s.ClientName
	}
	return "(no name)"
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether v looks like a deliverable address.
func ValidEmail(v string) bool {
	return emailPattern.MatchString(v)
}
