package notify

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/spec-kit/intake-desk/internal/domain"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func renderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.Table))
	})
	return markdown
}

// Brand decorates every outbound message.
type Brand struct {
	Name    string
	ReplyTo string
}

// Composer builds the messages the desk sends. Bodies are written in
// Markdown; the HTML alternative is rendered from the same source.
type Composer struct {
	Brand Brand
}

// NewComposer returns a composer for brand.
func NewComposer(brand Brand) *Composer {
	return &Composer{Brand: brand}
}

// AdminSubmission notifies staff of a new submission.
func (c *Composer) AdminSubmission(s domain.Submission, to []string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "New submission received. Ticket: **%s**\n\n", escape(s.Ticket))
	fmt.Fprintf(&b, "## %s\n\n", escape(string(s.Kind)))
	rows := make([][2]string, 0, len(s.Fields)+len(s.Attachments))
	for _, f := range s.Fields {
		rows = append(rows, [2]string{f.Label, f.Value})
	}
	for _, a := range s.Attachments {
		rows = append(rows, [2]string{"File", a})
	}
	writeTable(&b, rows)
	return c.message(fmt.Sprintf("%s - Ticket %s", s.Kind, s.Ticket), b.String(), to, s.ContactEmail())
}

// ClientAck confirms receipt to the submitter.
func (c *Composer) ClientAck(s domain.Submission) Message {
	ack := "We've received your submission."
	if spec, ok := domain.LookupKind(s.Kind); ok && spec.Ack != "" {
		ack = spec.Ack
	}
	name := s.ClientName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Received: %s\n\n", escape(string(s.Kind)))
	fmt.Fprintf(&b, "Hi **%s**, %s\n\n", escape(name), escape(ack))
	writeTable(&b, [][2]string{
		{"Ticket ID", s.Ticket},
		{"Email", c.Brand.ReplyTo},
	})
	return c.message(fmt.Sprintf("%s received - %s", s.Kind, s.Ticket), b.String(), []string{s.ContactEmail()}, c.Brand.ReplyTo)
}

// OverdueAlert tells the alert recipient a ticket has aged past the threshold.
func (c *Composer) OverdueAlert(v domain.View, thresholdHours float64, to string) Message {
	email := v.ContactEmail()
	if email == "" {
		email = "(n/a)"
	}
	limit := formatHours(thresholdHours)
	var b strings.Builder
	fmt.Fprintf(&b, "## Overdue ticket > %sh: %s\n\n", limit, escape(v.Ticket))
	writeTable(&b, [][2]string{
		{"Ticket", v.Ticket},
		{"Status", strings.ToUpper(string(v.Status))},
		{"Age (hours)", fmt.Sprintf("%.1f", v.AgeHours)},
		{"Submitted (UTC)", v.TS},
		{"Kind", string(v.Kind)},
		{"Name", v.ContactName()},
		{"Client Email", email},
	})
	b.WriteString("\nThis alert is sent once per ticket.\n")
	return c.message(fmt.Sprintf("[ALERT] Ticket overdue (>%sh): %s", limit, v.Ticket), b.String(), []string{to}, c.Brand.ReplyTo)
}

// TicketUpdate tells the client about a workflow change.
func (c *Composer) TicketUpdate(v domain.View, subject, to string) Message {
	note := v.Note
	if note == "" {
		note = "(no remarks)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Ticket update: %s\n\n", escape(v.Ticket))
	writeTable(&b, [][2]string{
		{"Ticket", v.Ticket},
		{"Status", strings.ToUpper(string(v.Status))},
		{"Remark", note},
	})
	b.WriteString("\nIf you have questions, just reply to this email.\n")
	return c.message(subject, b.String(), []string{to}, c.Brand.ReplyTo)
}

func (c *Composer) message(subject, body string, to []string, replyTo string) Message {
	if c.Brand.Name != "" {
		body = body + "\n---\n\n" + escape(c.Brand.Name) + "\n"
	}
	return Message{
		Subject: subject,
		Text:    body,
		HTML:    RenderHTML(body),
		To:      to,
		ReplyTo: replyTo,
	}
}

// RenderHTML converts Markdown to HTML. Raw HTML in the source is omitted.
// On a render error the HTML part is left empty and the text body stands.
func RenderHTML(md string) string {
	var buf bytes.Buffer
	if err := renderer().Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func writeTable(b *strings.Builder, rows [][2]string) {
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", cell(r[0]), cell(r[1]))
	}
}

func cell(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(escape(v), "|", `\|`)
}

var markdownSpecial = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`,
)

func escape(v string) string {
	return markdownSpecial.Replace(v)
}

func formatHours(h float64) string {
	if h == float64(int64(h)) {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("%.1f", h)
}
