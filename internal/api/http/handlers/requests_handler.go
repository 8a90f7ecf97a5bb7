package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/service"
)

// RequestsHandler serves public, requestor and staff blood request endpoints.
type RequestsHandler struct {
	authService    *service.AuthService
	requestService *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(authService *service.AuthService, requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{authService: authService, requestService: requestService}
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateBloodRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.requestService.Create(c.UserContext(), service.CreateRequestInput{
		RequestorEmail: req.RequestorEmail,
		PatientName:    req.PatientName,
		Hospital:       req.Hospital,
		ContactPhone:   req.ContactPhone,
		BloodGroup:     req.BloodGroup,
		City:           req.City,
		UnitsNeeded:    req.UnitsNeeded,
		Urgency:        req.Urgency,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestResponse(created)})
}

// SendAccessCode handles POST /api/auth/requestor/code.
func (h *RequestsHandler) SendAccessCode(c *fiber.Ctx) error {
	var req dto.RequestorAccessCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.SendRequestorAccessCode(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "code_sent"}})
}

// StartSession handles POST /api/auth/requestor/session.
func (h *RequestsHandler) StartSession(c *fiber.Ctx) error {
	var req dto.RequestorSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, exp, err := h.authService.StartRequestorSession(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// EndSession handles DELETE /api/requestor/session.
func (h *RequestsHandler) EndSession(c *fiber.Ctx) error {
	principal, err := requestorPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.authService.EndRequestorSession(c.UserContext(), principal.SessionID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMine handles GET /api/requestor/requests.
func (h *RequestsHandler) ListMine(c *fiber.Ctx) error {
	principal, err := requestorPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	items, err := h.requestService.ListForRequestor(c.UserContext(), principal.RequestorEmail, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(items)})
}

// CancelMine handles POST /api/requestor/requests/:id/cancel.
func (h *RequestsHandler) CancelMine(c *fiber.Ctx) error {
	principal, err := requestorPrincipal(c)
	if err != nil {
		return err
	}
	updated, err := h.requestService.CancelAsRequestor(c.UserContext(), principal.RequestorEmail, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(updated)})
}

// List handles GET /api/admin/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	bg, err := parseBloodGroupQuery(c, "blood_group")
	if err != nil {
		return err
	}
	filters := service.RequestListFilters{
		BloodGroup:  bg,
		City:        parseStringQuery(c, "city"),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	for _, s := range splitQuery(c, "status") {
		filters.Statuses = append(filters.Statuses, domain.RequestStatus(s))
	}
	for _, u := range splitQuery(c, "urgency") {
		filters.Urgencies = append(filters.Urgencies, domain.RequestUrgency(u))
	}
	filters.Limit, filters.Offset = pagination(c)

	items, err := h.requestService.ListForStaff(c.UserContext(), filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponses(items)})
}

// Get handles GET /api/admin/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	req, err := h.requestService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// UpdateStatus handles PUT /api/admin/requests/:id/status.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StatusUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.requestService.UpdateStatus(c.UserContext(), staff, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(updated)})
}
