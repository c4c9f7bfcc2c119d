package dto

import (
	"time"

	"github.com/spec-kit/intake-desk/internal/domain"
)

// ContactRequest payload for POST /api/contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// QuoteRequest payload for POST /api/quote.
type QuoteRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Type    string `json:"ptype"`
	Voltage string `json:"voltage"`
	When    string `json:"when"`
	Notes   string `json:"notes"`
}

// ProjectForm is the multipart form for POST /api/project.
type ProjectForm struct {
	Org      string `form:"org"`
	Name     string `form:"name"`
	Email    string `form:"email"`
	Phone    string `form:"phone"`
	Location string `form:"location"`
	Type     string `form:"ptype"`
	Mode     string `form:"mode"`
	Voltage  string `form:"voltage"`
	PODate   string `form:"podate"`
	Notes    string `form:"notes"`
	Visit    string `form:"visit"`
}

// SubmissionAccepted response.
type SubmissionAccepted struct {
	OK          bool     `json:"ok"`
	Ticket      string   `json:"ticket"`
	Attachments []string `json:"attachments,omitempty"`
	Skipped     []string `json:"skipped,omitempty"`
}

// UpdateTicketRequest payload for PATCH /admin/api/tickets/:ticket.
// Absent status or note leaves the field unchanged.
type UpdateTicketRequest struct {
	Status       *string `json:"status"`
	Note         *string `json:"note"`
	EmailClient  bool    `json:"email_client"`
	EmailSubject string  `json:"email_subject"`
}

// TicketListResponse response.
type TicketListResponse struct {
	OK    bool          `json:"ok"`
	Items []domain.View `json:"items"`
}

// TicketResponse response.
type TicketResponse struct {
	OK   bool        `json:"ok"`
	Item domain.View `json:"item"`
}

// UpdateTicketResponse response.
type UpdateTicketResponse struct {
	OK         bool        `json:"ok"`
	Item       domain.View `json:"item"`
	EmailSent  bool        `json:"email_sent"`
	EmailError string      `json:"email_error,omitempty"`
}

// LoginRequest payload for POST /admin/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse response.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
