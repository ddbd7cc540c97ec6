package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/contactsbook/contacts-api/internal/domain"
	"github.com/contactsbook/contacts-api/internal/dto"
	"github.com/contactsbook/contacts-api/internal/middleware"
	"github.com/contactsbook/contacts-api/internal/service"
	"github.com/contactsbook/contacts-api/pkg/response"
	"github.com/contactsbook/contacts-api/pkg/telemetry"
)

// ContactHandler handles address book HTTP requests
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Create handles contact creation
// POST /api/v1/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		response.BadRequest(c, err.Error())
		return
	}

	birthday, err := req.ParseBirthday()
	if err != nil {
		span.SetStatus(codes.Error, "invalid birthday")
		response.BadRequest(c, "Birthday must be formatted as YYYY-MM-DD")
		return
	}

	contact := &domain.Contact{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		Birthday:       birthday,
		AdditionalData: req.AdditionalData,
	}

	created, err := h.contactService.Create(ctx, user.ID, contact)
	if err != nil {
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("contact_id", created.ID))
	response.Created(c, dto.NewContactResponse(created))
}

// List handles filtered contact listing
// GET /api/v1/contacts?first_name=&last_name=&email=&skip=&limit=
func (h *ContactHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	filter := &domain.ContactFilter{
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
		Email:     c.Query("email"),
		Skip:      intQuery(c, "skip", 0),
		Limit:     intQuery(c, "limit", 100),
	}

	contacts, err := h.contactService.List(ctx, user.ID, filter)
	if err != nil {
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	response.SuccessWithMeta(c, dto.NewContactResponses(contacts), response.ListMeta{
		Skip:  filter.Skip,
		Limit: filter.Limit,
		Count: len(contacts),
	})
}

// Get handles single contact lookup
// GET /api/v1/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	contact, err := h.contactService.Get(ctx, user.ID, contactID)
	if err != nil {
		if errors.Is(err, service.ErrContactNotFound) {
			response.NotFound(c, "Contact not found")
			return
		}
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.NewContactResponse(contact))
}

// Update handles partial contact updates
// PUT /api/v1/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.ContactUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		response.BadRequest(c, err.Error())
		return
	}

	var birthday *time.Time
	if req.Birthday != nil {
		parsed, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil {
			response.BadRequest(c, "Birthday must be formatted as YYYY-MM-DD")
			return
		}
		birthday = &parsed
	}

	updated, err := h.contactService.Update(ctx, user.ID, contactID, func(contact *domain.Contact) {
		if req.FirstName != nil {
			contact.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			contact.LastName = *req.LastName
		}
		if req.Email != nil {
			contact.Email = *req.Email
		}
		if req.PhoneNumber != nil {
			contact.PhoneNumber = *req.PhoneNumber
		}
		if birthday != nil {
			contact.Birthday = *birthday
		}
		if req.AdditionalData != nil {
			contact.AdditionalData = req.AdditionalData
		}
	})
	if err != nil {
		if errors.Is(err, service.ErrContactNotFound) {
			response.NotFound(c, "Contact not found")
			return
		}
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.NewContactResponse(updated))
}

// Delete handles contact deletion
// DELETE /api/v1/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	contactID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.contactService.Delete(ctx, user.ID, contactID); err != nil {
		if errors.Is(err, service.ErrContactNotFound) {
			response.NotFound(c, "Contact not found")
			return
		}
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	response.NoContent(c)
}

// UpcomingBirthdays lists contacts with a birthday in the next week
// GET /api/v1/contacts/birthdays
func (h *ContactHandler) UpcomingBirthdays(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.contact.upcoming_birthdays")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "Could not validate credentials")
		return
	}

	contacts, err := h.contactService.UpcomingBirthdays(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		response.InternalError(c, err)
		return
	}

	response.Success(c, dto.NewContactResponses(contacts))
}

// pathID parses the :id path parameter, replying 400 on garbage.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid contact id")
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
