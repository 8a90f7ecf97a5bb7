package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gasc/blood-bridge/internal/api/dto"
	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/service"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

const defaultPageSize = 50

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req dto.Validator) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.FromValidator(err)
	}
	return nil
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func donorPrincipal(c *fiber.Ctx) (*domain.Donor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Donor == nil {
		return nil, apperrors.NewUnauthorized("donor required")
	}
	return principal.Donor, nil
}

func requestorPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.RequestorEmail == "" {
		return nil, apperrors.NewUnauthorized("requestor session required")
	}
	return principal, nil
}

func parseBoolQuery(c *fiber.Ctx, key string) *bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return &parsed
		}
	}
	return nil
}

func parseStringQuery(c *fiber.Ctx, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// pagination converts page/page_size query parameters to limit and offset.
func pagination(c *fiber.Ctx) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", defaultPageSize)
	return pageSize, (page - 1) * pageSize
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

// parseBloodGroupQuery returns nil when the parameter is absent.
func parseBloodGroupQuery(c *fiber.Ctx, key string) (*domain.BloodGroup, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	bg, err := domain.ParseBloodGroup(raw)
	if err != nil {
		return nil, err
	}
	return &bg, nil
}

func splitQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:          staff.ID,
		Name:        staff.Name,
		Email:       staff.Email,
		Role:        staff.Role,
		Active:      staff.Active,
		LastLoginAt: staff.LastLoginAt,
	}
}

func donorResponse(donor *domain.Donor, elig service.DonorEligibility) dto.DonorResponse {
	return dto.DonorResponse{
		ID:               donor.ID,
		Name:             donor.Name,
		Email:            donor.Email,
		Phone:            donor.Phone,
		Gender:           donor.Gender,
		BloodGroup:       donor.BloodGroup,
		City:             donor.City,
		LastDonationDate: donor.LastDonationDate,
		IsAvailable:      donor.IsAvailable,
		IsVerified:       donor.IsVerified,
		IsActive:         donor.IsActive,
		EmailVerified:    donor.EmailVerified,
		CanDonateNow:     elig.CanDonateNow,
		NextEligibleDate: elig.NextEligibleDate,
		CreatedAt:        donor.CreatedAt,
	}
}

func donationResponse(d *domain.Donation) dto.DonationResponse {
	return dto.DonationResponse{
		ID:           d.ID,
		DonorID:      d.DonorID,
		RequestID:    d.RequestID,
		DonationDate: d.DonationDate,
		Units:        d.Units,
		Notes:        d.Notes,
	}
}

func requestResponse(req *domain.BloodRequest) dto.BloodRequestResponse {
	return dto.BloodRequestResponse{
		ID:             req.ID,
		RequestorEmail: req.RequestorEmail,
		PatientName:    req.PatientName,
		Hospital:       req.Hospital,
		ContactPhone:   req.ContactPhone,
		BloodGroup:     req.BloodGroup,
		City:           req.City,
		UnitsNeeded:    req.UnitsNeeded,
		Urgency:        req.Urgency,
		Status:         req.Status,
		Notes:          req.Notes,
		CreatedAt:      req.CreatedAt,
		ExpiresAt:      req.ExpiresAt,
	}
}

func requestResponses(reqs []domain.BloodRequest) []dto.BloodRequestResponse {
	out := make([]dto.BloodRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, requestResponse(&reqs[i]))
	}
	return out
}
