package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/events"
	"github.com/gasc/blood-bridge/internal/repository"
)

const mailerConcurrency = 4

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	From   string
	Logger *zap.Logger
}

// Send logs the message.
func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.Info("sendEmailNotificationStub",
		zap.String("from", m.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	inventory  *InventoryService
	requests   repository.BloodRequestRepository
	mailer     Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Inventory   *InventoryService
	RequestRepo repository.BloodRequestRepository
	Mailer      Mailer
	Logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.NotificationConfig, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = LogMailer{From: cfg.EmailFrom, Logger: logger}
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		inventory:  deps.Inventory,
		requests:   deps.RequestRepo,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
	n.dispatcher.Subscribe(events.EventDonorRegistered, n.handleDonorRegistered)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	req := payload.Request
	donors, err := n.inventory.MatchDonors(ctx, req.BloodGroup, req.City)
	if err != nil {
		return err
	}
	if limit := n.cfg.MaxDonorsPerSend; limit > 0 && len(donors) > limit {
		donors = donors[:limit]
	}
	n.logger.Info("RequestCreated",
		zap.String("request_id", req.ID),
		zap.String("blood_group", req.BloodGroup.String()),
		zap.Int("donors_notified", len(donors)))

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(mailerConcurrency)
	for _, donor := range donors {
		msg := Message{
			To:      donor.Email,
			Subject: fmt.Sprintf("%s blood needed in %s", req.BloodGroup, req.City),
			Body:    donorAlertBody(donor, req, n.cfg.SiteURL),
		}
		p.Go(func(ctx context.Context) error {
			return n.mailer.Send(ctx, msg)
		})
	}
	return p.Wait()
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if n.requests == nil {
		return nil
	}
	req, err := n.requests.GetByID(ctx, event.EntityID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.RequestorEmail) == "" {
		return nil
	}
	return n.mailer.Send(ctx, Message{
		To:      req.RequestorEmail,
		Subject: fmt.Sprintf("Your %s request is now %s", req.BloodGroup, payload.NewStatus),
		Body: fmt.Sprintf("The request for %s at %s changed from %s to %s.",
			req.PatientName, req.Hospital, payload.OldStatus, payload.NewStatus),
	})
}

func (n *NotificationService) handleDonorRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DonorRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	link := strings.TrimRight(n.cfg.SiteURL, "/") + "/api/donors/verify-email?token=" + payload.VerifyToken
	return n.mailer.Send(ctx, Message{
		To:      payload.Email,
		Subject: "Verify your Blood Bridge email",
		Body:    fmt.Sprintf("Hello %s,\n\nConfirm your address: %s\n", payload.Name, link),
	})
}

func donorAlertBody(donor domain.Donor, req domain.BloodRequest, siteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", donor.Name)
	fmt.Fprintf(&b, "A %s patient at %s, %s needs %d unit(s) of blood (%s).\n",
		req.BloodGroup, req.Hospital, req.City, req.UnitsNeeded, req.Urgency)
	fmt.Fprintf(&b, "Contact: %s\n", req.ContactPhone)
	fmt.Fprintf(&b, "Needed before: %s\n", req.ExpiresAt.Format("2006-01-02 15:04"))
	if siteURL != "" {
		fmt.Fprintf(&b, "\nUpdate your availability at %s\n", strings.TrimRight(siteURL, "/"))
	}
	return b.String()
}
