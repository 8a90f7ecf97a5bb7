package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/events"
	"github.com/gasc/blood-bridge/internal/repository"
)

var (
	dhaka, _  = time.LoadLocation("Asia/Dhaka")
	fixedNow  = time.Date(2024, time.June, 15, 10, 0, 0, 0, dhaka)
	errStore  = errors.New("connection refused")
	clockFunc = func() time.Time { return fixedNow }
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:                  "test-secret",
			AccessTokenTTLMinutes:      30,
			RequestorSessionTTLMinutes: 60,
			BcryptCost:                 4,
		},
		Notification: config.NotificationConfig{
			EmailFrom:        "alerts@example.org",
			SiteURL:          "https://bridge.example.org/",
			MaxDonorsPerSend: 2,
		},
	}
}

type fakeDonorRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Donor
	seq     int
	listErr error
}

func newFakeDonorRepo(donors ...domain.Donor) *fakeDonorRepo {
	r := &fakeDonorRepo{byID: map[string]*domain.Donor{}}
	for i := range donors {
		d := donors[i]
		r.byID[d.ID] = &d
	}
	return r
}

func (r *fakeDonorRepo) Create(_ context.Context, donor *domain.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	donor.ID = fmt.Sprintf("donor-%d", r.seq)
	donor.CreatedAt = fixedNow
	cp := *donor
	r.byID[donor.ID] = &cp
	return nil
}

func (r *fakeDonorRepo) Update(_ context.Context, donor *domain.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[donor.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cp := *donor
	cp.LastDonationDate = stored.LastDonationDate
	donor.LastDonationDate = stored.LastDonationDate
	r.byID[donor.ID] = &cp
	return nil
}

func (r *fakeDonorRepo) GetByID(_ context.Context, id string) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDonorRepo) GetByEmail(_ context.Context, email string) (*domain.Donor, error) {
	return r.find(func(d *domain.Donor) bool { return strings.EqualFold(d.Email, email) })
}

func (r *fakeDonorRepo) GetByVerifyToken(_ context.Context, token string) (*domain.Donor, error) {
	return r.find(func(d *domain.Donor) bool { return d.EmailVerifyToken != nil && *d.EmailVerifyToken == token })
}

func (r *fakeDonorRepo) find(match func(*domain.Donor) bool) (*domain.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if match(d) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDonorRepo) all() []domain.Donor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Donor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, *d)
	}
	return out
}

func (r *fakeDonorRepo) List(_ context.Context, filter repository.DonorFilter) ([]domain.Donor, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return lo.Filter(r.all(), func(d domain.Donor, _ int) bool {
		if len(filter.BloodGroups) > 0 && !lo.Contains(filter.BloodGroups, d.BloodGroup) {
			return false
		}
		if filter.City != nil && !strings.EqualFold(d.City, *filter.City) {
			return false
		}
		if filter.Verified != nil && d.IsVerified != *filter.Verified {
			return false
		}
		return true
	}), nil
}

func (r *fakeDonorRepo) ForEach(_ context.Context, fn func(domain.Donor) error) error {
	if r.listErr != nil {
		return r.listErr
	}
	donors := r.all()
	sort.Slice(donors, func(i, j int) bool { return donors[i].ID < donors[j].ID })
	for _, d := range donors {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeDonorRepo) ListMatchCandidates(_ context.Context, groups []domain.BloodGroup, city string) ([]domain.Donor, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return lo.Filter(r.all(), func(d domain.Donor, _ int) bool {
		if !d.Listed() || !lo.Contains(groups, d.BloodGroup) {
			return false
		}
		return city == "" || strings.EqualFold(strings.TrimSpace(d.City), strings.TrimSpace(city))
	}), nil
}

func (r *fakeDonorRepo) ListProfiles(_ context.Context) ([]domain.Donor, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.all(), nil
}

func (r *fakeDonorRepo) CityExists(_ context.Context, city string) (bool, error) {
	if r.listErr != nil {
		return false, r.listErr
	}
	return eligibility.CityKnown(r.all(), city), nil
}

func (r *fakeDonorRepo) SetLastDonation(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if d.LastDonationDate == nil || d.LastDonationDate.Before(at) {
		d.LastDonationDate = &at
	}
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.BloodRequest
	seq      int
	countErr error
}

func newFakeRequestRepo(reqs ...domain.BloodRequest) *fakeRequestRepo {
	r := &fakeRequestRepo{byID: map[string]*domain.BloodRequest{}}
	for i := range reqs {
		req := reqs[i]
		r.byID[req.ID] = &req
	}
	return r
}

func (r *fakeRequestRepo) Create(_ context.Context, req *domain.BloodRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	req.ID = fmt.Sprintf("req-%d", r.seq)
	cp := *req
	r.byID[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.byID[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRequestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BloodRequest
	for _, req := range r.byID {
		if filter.RequestorEmail != nil && !strings.EqualFold(req.RequestorEmail, *filter.RequestorEmail) {
			continue
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, req.Status) {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (r *fakeRequestRepo) TransitionStatus(_ context.Context, id string, from, to domain.RequestStatus) (*domain.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if req.Status != from {
		return nil, repository.ErrStatusConflict
	}
	req.Status = to
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) count(match func(*domain.BloodRequest) bool) (map[domain.BloodGroup]int, error) {
	if r.countErr != nil {
		return nil, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.BloodGroup]int{}
	for _, req := range r.byID {
		if match(req) {
			out[req.BloodGroup]++
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) CountActiveByGroup(_ context.Context) (map[domain.BloodGroup]int, error) {
	return r.count(func(req *domain.BloodRequest) bool { return req.Status == domain.RequestStatusActive })
}

func (r *fakeRequestRepo) CountFulfilledSince(_ context.Context, since time.Time) (map[domain.BloodGroup]int, error) {
	return r.count(func(req *domain.BloodRequest) bool {
		return req.Status == domain.RequestStatusFulfilled && !req.UpdatedAt.Before(since)
	})
}

func (r *fakeRequestRepo) ExpireOverdue(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, req := range r.byID {
		if req.Overdue(now) {
			req.Status = domain.RequestStatusExpired
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeDonationRepo struct {
	donors   *fakeDonorRepo
	recorded []domain.Donation
}

func (r *fakeDonationRepo) Record(ctx context.Context, donation *domain.Donation) error {
	donation.ID = fmt.Sprintf("donation-%d", len(r.recorded)+1)
	r.recorded = append(r.recorded, *donation)
	return r.donors.SetLastDonation(ctx, donation.DonorID, donation.DonationDate)
}

func (r *fakeDonationRepo) ListByDonor(_ context.Context, donorID string, _, _ int) ([]domain.Donation, error) {
	return lo.Filter(r.recorded, func(d domain.Donation, _ int) bool { return d.DonorID == donorID }), nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityLog
	err     error
}

func (r *fakeActivityRepo) Create(_ context.Context, entry *domain.ActivityLog) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = fixedNow
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) List(_ context.Context, _ repository.ActivityFilter) ([]domain.ActivityLog, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.ActivityLog{}, r.entries...), nil
}

func (r *fakeActivityRepo) ForEach(_ context.Context, _ repository.ActivityFilter, fn func(domain.ActivityLog) error) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	entries := append([]domain.ActivityLog{}, r.entries...)
	r.mu.Unlock()
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeActivityRepo) actions() []domain.ActivityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.entries, func(e domain.ActivityLog, _ int) domain.ActivityAction { return e.Action })
}

type fakeStaffRepo struct {
	byID     map[string]*domain.StaffMember
	seq      int
	touchErr error
}

func newFakeStaffRepo(staff ...domain.StaffMember) *fakeStaffRepo {
	r := &fakeStaffRepo{byID: map[string]*domain.StaffMember{}}
	for i := range staff {
		s := staff[i]
		r.byID[s.ID] = &s
	}
	return r
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.seq++
	staff.ID = fmt.Sprintf("staff-%d", r.seq)
	cp := *staff
	r.byID[staff.ID] = &cp
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	cp := *staff
	r.byID[staff.ID] = &cp
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if s, ok := r.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, s := range r.byID {
		if strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	for _, s := range r.byID {
		if filter.Role != nil && s.Role != *filter.Role {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeStaffRepo) TouchLogin(_ context.Context, id string) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	if s, ok := r.byID[id]; ok {
		now := fixedNow
		s.LastLoginAt = &now
	}
	return nil
}

func (r *fakeStaffRepo) Count(_ context.Context) (int, error) {
	return len(r.byID), nil
}

type fakeSessionRepo struct {
	sessions map[string]string
	codes    map[string]string
	err      error
}

func (r *fakeSessionRepo) Create(_ context.Context, sessionID, email string, _ time.Duration) error {
	if r.err != nil {
		return r.err
	}
	if r.sessions == nil {
		r.sessions = map[string]string{}
	}
	r.sessions[sessionID] = email
	return nil
}

func (r *fakeSessionRepo) Lookup(_ context.Context, sessionID string) (string, bool, error) {
	email, ok := r.sessions[sessionID]
	return email, ok, r.err
}

func (r *fakeSessionRepo) Revoke(_ context.Context, sessionID string) error {
	if r.err != nil {
		return r.err
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) SaveAccessCode(_ context.Context, email, code string, _ time.Duration) error {
	if r.err != nil {
		return r.err
	}
	if r.codes == nil {
		r.codes = map[string]string{}
	}
	r.codes[email] = code
	return nil
}

func (r *fakeSessionRepo) ConsumeAccessCode(_ context.Context, email, code string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	stored, ok := r.codes[email]
	delete(r.codes, email)
	return ok && stored == code, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.sent, func(msg Message, _ int) string { return msg.To })
}

type capturingDispatcher struct {
	events.Dispatcher
	published []events.Event
}

func newCapturingDispatcher() *capturingDispatcher {
	return &capturingDispatcher{Dispatcher: events.NewInMemoryDispatcher(zap.NewNop())}
}

func (d *capturingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return d.Dispatcher.Publish(ctx, event)
}

func (d *capturingDispatcher) types() []events.EventType {
	return lo.Map(d.published, func(e events.Event, _ int) events.EventType { return e.Type })
}

func listed(id string, bg domain.BloodGroup, gender domain.Gender, city string, last *time.Time) domain.Donor {
	return domain.Donor{
		ID:               id,
		Name:             "Donor " + id,
		Email:            id + "@example.org",
		Gender:           gender,
		BloodGroup:       bg,
		City:             city,
		LastDonationDate: last,
		IsAvailable:      true,
		IsVerified:       true,
		IsActive:         true,
		EmailVerified:    true,
	}
}

func daysAgo(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, -n)
	return &t
}

func mustResolver(mode eligibility.MatchingMode) *eligibility.Resolver {
	r, err := eligibility.NewResolver(mode)
	if err != nil {
		panic(err)
	}
	return r
}

func newInventory(donors *fakeDonorRepo, requests *fakeRequestRepo, strict bool) *InventoryService {
	return NewInventoryService(InventoryDependencies{
		DonorRepo:        donors,
		RequestRepo:      requests,
		Resolver:         mustResolver(eligibility.MatchingModeCompatible),
		Policy:           eligibility.DefaultCooldownPolicy(dhaka),
		StrictCityFilter: strict,
		Now:              clockFunc,
	})
}
