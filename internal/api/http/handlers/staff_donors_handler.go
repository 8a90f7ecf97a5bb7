package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/service"
)

// StaffDonorsHandler exposes donor moderation endpoints for staff.
type StaffDonorsHandler struct {
	donorService *service.DonorService
}

// NewStaffDonorsHandler constructs handler.
func NewStaffDonorsHandler(donorService *service.DonorService) *StaffDonorsHandler {
	return &StaffDonorsHandler{donorService: donorService}
}

// List handles GET /api/admin/donors.
func (h *StaffDonorsHandler) List(c *fiber.Ctx) error {
	bg, err := parseBloodGroupQuery(c, "blood_group")
	if err != nil {
		return err
	}
	filters := service.DonorListFilters{
		BloodGroup:    bg,
		City:          parseStringQuery(c, "city"),
		Verified:      parseBoolQuery(c, "verified"),
		Available:     parseBoolQuery(c, "available"),
		Active:        parseBoolQuery(c, "active"),
		EmailVerified: parseBoolQuery(c, "email_verified"),
		Search:        parseStringQuery(c, "q"),
	}
	filters.Limit, filters.Offset = pagination(c)

	donors, err := h.donorService.List(c.UserContext(), filters)
	if err != nil {
		return err
	}
	resp := make([]dto.DonorResponse, 0, len(donors))
	for i := range donors {
		resp = append(resp, donorResponse(&donors[i], h.donorService.Eligibility(&donors[i])))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /api/admin/donors/:id.
func (h *StaffDonorsHandler) Get(c *fiber.Ctx) error {
	donor, err := h.donorService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": donorResponse(donor, h.donorService.Eligibility(donor))})
}

// Verify handles PUT /api/admin/donors/:id/verified.
func (h *StaffDonorsHandler) Verify(c *fiber.Ctx) error {
	return h.setFlag(c, h.donorService.Verify)
}

// SetAvailability handles PUT /api/admin/donors/:id/availability.
func (h *StaffDonorsHandler) SetAvailability(c *fiber.Ctx) error {
	return h.setFlag(c, h.donorService.SetAvailability)
}

// SetActive handles PUT /api/admin/donors/:id/active. Admin only.
func (h *StaffDonorsHandler) SetActive(c *fiber.Ctx) error {
	return h.setFlag(c, h.donorService.SetActive)
}

type donorFlagSetter func(ctx context.Context, actor *domain.StaffMember, donorID string, value bool) (*domain.Donor, error)

func (h *StaffDonorsHandler) setFlag(c *fiber.Ctx, set donorFlagSetter) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.FlagRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	donor, err := set(c.UserContext(), staff, c.Params("id"), *req.Value)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": donorResponse(donor, h.donorService.Eligibility(donor))})
}

// RecordDonation handles POST /api/admin/donors/:id/donations.
func (h *StaffDonorsHandler) RecordDonation(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RecordDonationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.RecordDonationInput{
		DonorID:   c.Params("id"),
		RequestID: req.RequestID,
		Units:     req.Units,
		Notes:     req.Notes,
	}
	if req.DonationDate != nil {
		input.DonationDate = *req.DonationDate
	}
	donation, err := h.donorService.RecordDonation(c.UserContext(), staff, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": donationResponse(donation)})
}

// Donations handles GET /api/admin/donors/:id/donations.
func (h *StaffDonorsHandler) Donations(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	items, err := h.donorService.Donations(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]dto.DonationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, donationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}
