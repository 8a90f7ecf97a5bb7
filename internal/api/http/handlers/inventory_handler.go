package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/service"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// InventoryHandler serves public stock and donor count endpoints.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler constructs handler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Inventory handles GET /api/inventory.
func (h *InventoryHandler) Inventory(c *fiber.Ctx) error {
	snaps, err := h.inventory.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.InventoryItem, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, dto.InventoryItem{
			BloodGroup:         s.BloodGroup,
			TotalDonors:        s.TotalDonors,
			AvailableDonors:    s.AvailableDonors,
			CanDonateNow:       s.CanDonateNow,
			ActiveRequests:     s.ActiveRequests,
			FulfilledThisMonth: s.FulfilledThisMonth,
			StockStatus:        s.StockStatus,
		})
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"matching_mode": h.inventory.Resolver().Mode()},
	})
}

// DonorCount handles GET /api/donors/count?blood_group=&city=&mode=.
func (h *InventoryHandler) DonorCount(c *fiber.Ctx) error {
	raw := c.Query("blood_group")
	if raw == "" {
		return apperrors.NewValidationError("blood_group required", nil)
	}
	bg, err := domain.ParseBloodGroup(raw)
	if err != nil {
		return err
	}
	query := service.DonorCountQuery{BloodGroup: bg, City: c.Query("city")}
	if modeRaw := c.Query("mode"); modeRaw != "" {
		mode, err := eligibility.ParseMatchingMode(modeRaw)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), map[string]any{"mode": modeRaw})
		}
		query.Mode = &mode
	}
	count, err := h.inventory.CountAvailableDonors(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": count})
}
