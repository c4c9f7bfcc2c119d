package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/api/dto"
	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/service"
	"github.com/spec-kit/intake-desk/internal/uploads"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// IntakeHandler serves the public submission forms.
type IntakeHandler struct {
	service *service.IntakeService
	uploads *uploads.Store
	logger  *zap.Logger
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(intake *service.IntakeService, store *uploads.Store, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{service: intake, uploads: store, logger: logger}
}

// Contact POST /api/contact.
func (h *IntakeHandler) Contact(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.submit(c, service.IntakeInput{
		Kind: domain.KindContact,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: req.Name},
			{Label: domain.LabelEmail, Value: req.Email},
			{Label: domain.LabelMessage, Value: req.Message},
		},
	}, nil)
}

// Quote POST /api/quote.
func (h *IntakeHandler) Quote(c *fiber.Ctx) error {
	var req dto.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.submit(c, service.IntakeInput{
		Kind: domain.KindQuote,
		Fields: domain.Fields{
			{Label: domain.LabelName, Value: req.Name},
			{Label: domain.LabelEmail, Value: req.Email},
			{Label: domain.LabelPhone, Value: req.Phone},
			{Label: domain.LabelType, Value: req.Type},
			{Label: domain.LabelVoltage, Value: req.Voltage},
			{Label: domain.LabelWhen, Value: req.When},
			{Label: domain.LabelNotes, Value: req.Notes},
		},
	}, nil)
}

// Project POST /api/project (multipart). Files are stored before the
// submission is logged; rejected files are reported back, not fatal.
func (h *IntakeHandler) Project(c *fiber.Ctx) error {
	var form dto.ProjectForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.NewValidationError("invalid form", nil)
	}
	visit := "No"
	switch strings.ToLower(strings.TrimSpace(form.Visit)) {
	case "on", "true", "1", "yes":
		visit = "Yes"
	}
	in := service.IntakeInput{
		Kind: domain.KindProject,
		Fields: domain.Fields{
			{Label: domain.LabelOrganisation, Value: form.Org},
			{Label: domain.LabelName, Value: form.Name},
			{Label: domain.LabelEmail, Value: form.Email},
			{Label: domain.LabelPhone, Value: form.Phone},
			{Label: domain.LabelLocation, Value: form.Location},
			{Label: domain.LabelProjectType, Value: form.Type},
			{Label: domain.LabelProcurement, Value: form.Mode},
			{Label: domain.LabelVoltage, Value: form.Voltage},
			{Label: domain.LabelPODate, Value: form.PODate},
			{Label: domain.LabelNotes, Value: form.Notes},
			{Label: domain.LabelSiteVisit, Value: visit},
		},
	}
	if strings.TrimSpace(form.Name) == "" || !domain.ValidEmail(strings.TrimSpace(form.Email)) {
		return apperrors.NewValidationError("missing/invalid name/email", nil)
	}

	var skipped []string
	if mf, err := c.MultipartForm(); err == nil && h.uploads != nil {
		saved, rejected, err := h.uploads.Save(mf.File["files"])
		if err != nil {
			h.logger.Error("store attachments failed", zap.Error(err))
			return apperrors.NewPersistenceFailure("store attachments", err)
		}
		in.Attachments = saved
		for _, r := range rejected {
			skipped = append(skipped, r.Name)
		}
	}
	return h.submit(c, in, skipped)
}

func (h *IntakeHandler) submit(c *fiber.Ctx, in service.IntakeInput, skipped []string) error {
	in.Meta = domain.Fields{
		{Label: domain.MetaIP, Value: c.IP()},
		{Label: domain.MetaUserAgent, Value: c.Get(fiber.HeaderUserAgent)},
	}
	sub, err := h.service.Submit(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SubmissionAccepted{
		OK:          true,
		Ticket:      sub.Ticket,
		Attachments: sub.Attachments,
		Skipped:     skipped,
	})
}
