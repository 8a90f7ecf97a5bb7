package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/repository"
	"github.com/gasc/blood-bridge/internal/service"
)

// ReportsHandler serves CSV exports and the activity feed.
type ReportsHandler struct {
	reports  *service.ReportService
	activity *service.ActivityService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, activity *service.ActivityService) *ReportsHandler {
	return &ReportsHandler{reports: reports, activity: activity}
}

// Export handles GET /api/admin/reports/:kind.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := service.ParseReportKind(c.Params("kind"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.reports.Export(c.UserContext(), staff, kind, &buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.csv"`, kind))
	return c.Send(buf.Bytes())
}

// Activity handles GET /api/admin/activity.
func (h *ReportsHandler) Activity(c *fiber.Ctx) error {
	filter := repository.ActivityFilter{
		From: parseTime(c.Query("from")),
		To:   parseTime(c.Query("to")),
	}
	for _, a := range splitQuery(c, "action") {
		filter.Actions = append(filter.Actions, domain.ActivityAction(a))
	}
	if actor := c.Query("actor_type"); actor != "" {
		at := domain.SubjectType(actor)
		filter.ActorType = &at
	}
	filter.Limit, filter.Offset = pagination(c)

	entries, err := h.activity.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.ActivityResponse{
			ID:         e.ID,
			ActorType:  e.ActorType,
			ActorID:    e.ActorID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Details:    e.Details,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
