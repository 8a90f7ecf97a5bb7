package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/service"
)

// DonorsHandler serves donor self-service endpoints.
type DonorsHandler struct {
	authService  *service.AuthService
	donorService *service.DonorService
}

// NewDonorsHandler constructs handler.
func NewDonorsHandler(authService *service.AuthService, donorService *service.DonorService) *DonorsHandler {
	return &DonorsHandler{authService: authService, donorService: donorService}
}

// Register handles POST /api/donors/register.
func (h *DonorsHandler) Register(c *fiber.Ctx) error {
	var req dto.DonorRegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	donor, err := h.donorService.Register(c.UserContext(), service.RegisterDonorInput{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Password:         req.Password,
		Gender:           req.Gender,
		BloodGroup:       req.BloodGroup,
		City:             req.City,
		LastDonationDate: req.LastDonationDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": donorResponse(donor, h.donorService.Eligibility(donor))})
}

// VerifyEmail handles GET /api/donors/verify-email?token=.
func (h *DonorsHandler) VerifyEmail(c *fiber.Ctx) error {
	donor, err := h.donorService.VerifyEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "email_verified", "donor_id": donor.ID}})
}

// Login handles POST /api/auth/donors/login.
func (h *DonorsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	donor, token, exp, err := h.authService.LoginDonor(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"donor": donorResponse(donor, h.donorService.Eligibility(donor)),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /api/me.
func (h *DonorsHandler) Me(c *fiber.Ctx) error {
	donor, err := donorPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": donorResponse(donor, h.donorService.Eligibility(donor))})
}

// UpdateProfile handles PATCH /api/me.
func (h *DonorsHandler) UpdateProfile(c *fiber.Ctx) error {
	donor, err := donorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.DonorProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.donorService.UpdateProfile(c.UserContext(), donor, service.DonorProfileInput{
		Name:             req.Name,
		Phone:            req.Phone,
		City:             req.City,
		LastDonationDate: req.LastDonationDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": donorResponse(updated, h.donorService.Eligibility(updated))})
}

// SetAvailability handles PUT /api/me/availability.
func (h *DonorsHandler) SetAvailability(c *fiber.Ctx) error {
	donor, err := donorPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.FlagRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.donorService.SetOwnAvailability(c.UserContext(), donor, *req.Value)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": donorResponse(updated, h.donorService.Eligibility(updated))})
}

// Donations handles GET /api/me/donations.
func (h *DonorsHandler) Donations(c *fiber.Ctx) error {
	donor, err := donorPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	items, err := h.donorService.Donations(c.UserContext(), donor.ID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]dto.DonationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, donationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}
