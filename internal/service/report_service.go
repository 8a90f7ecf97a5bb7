package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// ReportKind names an exportable report.
type ReportKind string

const (
	ReportDonors    ReportKind = "donors"
	ReportInventory ReportKind = "inventory"
	ReportActivity  ReportKind = "activity"
)

// ReportService renders CSV exports for staff.
type ReportService struct {
	donors    *DonorService
	inventory *InventoryService
	activity  *ActivityService
}

// NewReportService constructs the service.
func NewReportService(donors *DonorService, inventory *InventoryService, activity *ActivityService) *ReportService {
	return &ReportService{donors: donors, inventory: inventory, activity: activity}
}

// ParseReportKind validates a report name.
func ParseReportKind(raw string) (ReportKind, error) {
	kind := ReportKind(raw)
	if !lo.Contains([]ReportKind{ReportDonors, ReportInventory, ReportActivity}, kind) {
		return "", apperrors.NewValidationError("unknown report", map[string]any{"report": raw})
	}
	return kind, nil
}

// Export writes the report as CSV to w and records the export. Donor and activity reports cover
// every row in the store.
func (s *ReportService) Export(ctx context.Context, actor *domain.StaffMember, kind ReportKind, w io.Writer) error {
	cw := csv.NewWriter(w)
	var (
		rows int
		err  error
	)
	switch kind {
	case ReportDonors:
		rows, err = s.writeDonors(ctx, cw)
	case ReportInventory:
		rows, err = s.writeInventory(ctx, cw)
	case ReportActivity:
		rows, err = s.writeActivity(ctx, cw)
	default:
		return apperrors.NewValidationError("unknown report", map[string]any{"report": kind})
	}
	if err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.NewInternalError(err)
	}

	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &actor.ID,
		Action:     domain.ActionReportExported,
		EntityType: "report",
		Details:    map[string]any{"report": kind, "rows": rows},
	})
	return nil
}

func (s *ReportService) writeDonors(ctx context.Context, cw *csv.Writer) (int, error) {
	header := []string{"id", "name", "email", "phone", "gender", "blood_group", "city",
		"last_donation_date", "available", "verified", "active", "email_verified", "can_donate_now"}
	if err := writeRow(cw, header); err != nil {
		return 0, err
	}
	loc := s.donors.policy.Location
	rows := 0
	err := s.donors.ForEach(ctx, func(d *domain.Donor) error {
		elig := s.donors.Eligibility(d)
		rows++
		return writeRow(cw, []string{
			d.ID, d.Name, d.Email, d.Phone, string(d.Gender), d.BloodGroup.String(), d.City,
			formatDate(d.LastDonationDate, loc),
			strconv.FormatBool(d.IsAvailable), strconv.FormatBool(d.IsVerified),
			strconv.FormatBool(d.IsActive), strconv.FormatBool(d.EmailVerified),
			strconv.FormatBool(elig.CanDonateNow),
		})
	})
	return rows, err
}

func (s *ReportService) writeInventory(ctx context.Context, cw *csv.Writer) (int, error) {
	snaps, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	header := []string{"blood_group", "total_donors", "available_donors", "can_donate_now",
		"active_requests", "fulfilled_this_month", "stock_status"}
	if err := writeRow(cw, header); err != nil {
		return 0, err
	}
	for _, snap := range snaps {
		err := writeRow(cw, []string{
			snap.BloodGroup.String(),
			strconv.Itoa(snap.TotalDonors),
			strconv.Itoa(snap.AvailableDonors),
			strconv.Itoa(snap.CanDonateNow),
			strconv.Itoa(snap.ActiveRequests),
			strconv.Itoa(snap.FulfilledThisMonth),
			string(snap.StockStatus),
		})
		if err != nil {
			return 0, err
		}
	}
	return len(snaps), nil
}

func (s *ReportService) writeActivity(ctx context.Context, cw *csv.Writer) (int, error) {
	header := []string{"timestamp", "actor_type", "actor_id", "action", "entity_type", "entity_id", "details"}
	if err := writeRow(cw, header); err != nil {
		return 0, err
	}
	rows := 0
	err := s.activity.ForEach(ctx, repository.ActivityFilter{}, func(e domain.ActivityLog) error {
		details := ""
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			details = string(raw)
		}
		rows++
		return writeRow(cw, []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.ActorType),
			lo.FromPtr(e.ActorID),
			string(e.Action),
			e.EntityType,
			lo.FromPtr(e.EntityID),
			details,
		})
	})
	return rows, err
}

func writeRow(cw *csv.Writer, record []string) error {
	if err := cw.Write(record); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// formatDate renders the calendar date in loc, the zone cooldowns are computed in.
func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return t.In(loc).Format("2006-01-02")
	}
	return t.Format("2006-01-02")
}
