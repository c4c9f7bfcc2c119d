package domain

import (
	"strings"
	"sync"
)

// Kind tags the intake channel a submission arrived through.
type Kind string

const (
	KindContact Kind = "Contact"
	KindQuote   Kind = "Quick Quote"
	KindProject Kind = "Project Desk"
)

// Field labels recognized across kinds.
const (
	LabelName         = "Name"
	LabelEmail        = "Email"
	LabelPhone        = "Phone"
	LabelMessage      = "Message"
	LabelType         = "Type"
	LabelVoltage      = "Voltage"
	LabelWhen         = "When"
	LabelNotes        = "Notes"
	LabelOrganisation = "Organisation / Dept"
	LabelLocation     = "Site Location"
	LabelProjectType  = "Project Type"
	LabelProcurement  = "Procurement Mode"
	LabelPODate       = "Expected PO / Start"
	LabelSiteVisit    = "Site Visit"
)

// Meta keys recognized on every submission.
const (
	MetaIP        = "ip"
	MetaUserAgent = "ua"
)

// KindSpec is the closed schema of one submission kind.
type KindSpec struct {
	Kind     Kind
	Prefix   string
	Labels   []string
	Required []string
	// Ack is the sentence used in the client acknowledgement.
	Ack string
}

// Allows reports whether label belongs to the kind.
func (k KindSpec) Allows(label string) bool {
	for _, l := range k.Labels {
		if l == label {
			return true
		}
	}
	return false
}

var (
	kindsMu sync.RWMutex
	kinds   = map[Kind]KindSpec{
		KindContact: {
			Kind:     KindContact,
			Prefix:   "CO",
			Labels:   []string{LabelName, LabelEmail, LabelMessage},
			Required: []string{LabelName, LabelEmail, LabelMessage},
			Ack:      "Thanks for your message. We'll get back within 24 hours (Mon-Fri).",
		},
		KindQuote: {
			Kind:     KindQuote,
			Prefix:   "QU",
			Labels:   []string{LabelName, LabelEmail, LabelPhone, LabelType, LabelVoltage, LabelWhen, LabelNotes},
			Required: []string{LabelName, LabelEmail, LabelPhone, LabelType},
			Ack:      "We've logged your request. Expect a quote or clarifications in 24 hours.",
		},
		KindProject: {
			Kind:   KindProject,
			Prefix: "PR",
			Labels: []string{
				LabelOrganisation, LabelName, LabelEmail, LabelPhone, LabelLocation, LabelProjectType,
				LabelProcurement, LabelVoltage, LabelPODate, LabelNotes, LabelSiteVisit,
			},
			Required: []string{LabelName, LabelEmail},
			Ack:      "We've received your scope and files. Our engineers will review and respond soon.",
		},
	}
)

// LookupKind returns the schema for k.
func LookupKind(k Kind) (KindSpec, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	spec, ok := kinds[k]
	return spec, ok
}

// RegisterKind adds or replaces a kind schema. A missing prefix is derived
// from the first two letters of the kind.
func RegisterKind(spec KindSpec) {
	if spec.Prefix == "" {
		p := strings.ToUpper(strings.ReplaceAll(string(spec.Kind), " ", ""))
		if len(p) > 2 {
			p = p[:2]
		}
		spec.Prefix = p
	}
	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds[spec.Kind] = spec
}
