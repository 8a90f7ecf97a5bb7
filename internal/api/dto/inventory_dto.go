package dto

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// InventoryItem is one blood group row of the inventory page.
type InventoryItem struct {
	BloodGroup         domain.BloodGroup  `json:"blood_group"`
	TotalDonors        int                `json:"total_donors"`
	AvailableDonors    int                `json:"available_donors"`
	CanDonateNow       int                `json:"can_donate_now"`
	ActiveRequests     int                `json:"active_requests"`
	FulfilledThisMonth int                `json:"fulfilled_this_month"`
	StockStatus        domain.StockStatus `json:"stock_status"`
}

// ActivityResponse view.
type ActivityResponse struct {
	ID         string                `json:"id"`
	ActorType  domain.SubjectType    `json:"actor_type"`
	ActorID    *string               `json:"actor_id,omitempty"`
	Action     domain.ActivityAction `json:"action"`
	EntityType string                `json:"entity_type"`
	EntityID   *string               `json:"entity_id,omitempty"`
	Details    map[string]any        `json:"details,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}
