package domain

// StockStatus summarizes donor supply against active demand.
type StockStatus string

const (
	StockGood     StockStatus = "Good"
	StockLow      StockStatus = "Low"
	StockCritical StockStatus = "Critical"
)

// InventorySnapshot is recomputed per call and never persisted.
type InventorySnapshot struct {
	BloodGroup         BloodGroup
	TotalDonors        int
	AvailableDonors    int
	CanDonateNow       int
	ActiveRequests     int
	FulfilledThisMonth int
	StockStatus        StockStatus
}
