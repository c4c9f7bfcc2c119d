package domain

// AuditEntry is an immutable record of one workflow update.
type AuditEntry struct {
	TS        string `json:"ts"`
	By        string `json:"by"`
	Status    Status `json:"status"`
	Note      string `json:"note"`
	EmailSent bool   `json:"email_sent"`
}

// Overlay is the mutable workflow state layered over a submission.
type Overlay struct {
	Status           Status       `json:"status"`
	Note             string       `json:"note"`
	History          []AuditEntry `json:"history"`
	OverdueAlerted   bool         `json:"overdue_alerted"`
	OverdueAlertedTS string       `json:"overdue_alerted_ts,omitempty"`
}

// DefaultOverlay is the state of a ticket nobody has touched yet.
func DefaultOverlay() Overlay {
	return Overlay{Status: StatusOpen, History: []AuditEntry{}}
}

// Clone returns a copy whose history does not alias o's.
func (o Overlay) Clone() Overlay {
	c := o
	c.History = append([]AuditEntry{}, o.History...)
	return c
}

// Normalized fills defaults for fields older state files may omit.
func (o Overlay) Normalized() Overlay {
	if st, ok := ParseStatus(string(o.Status)); ok {
		o.Status = st
	} else {
		o.Status = StatusOpen
	}
	if o.History == nil {
		o.History = []AuditEntry{}
	}
	if !o.OverdueAlerted {
		o.OverdueAlertedTS = ""
	}
	return o
}
