package models

import (
	"time"

	"gorm.io/datatypes"
)

// Garment history event types written by the ledger engine.
const (
	HistoryServiceAdded       = "service_added"
	HistoryServiceCompleted   = "service_completed"
	HistoryServiceUncompleted = "service_uncompleted"
	HistoryStageChanged       = "stage_changed"
	HistoryInvoiceCreated     = "invoice_created"
	HistoryPickupConfirmed    = "pickup_confirmed"
)

// GarmentHistory is the append-only audit trail for a garment. Payload holds
// the event-specific details (service name, quantity, prices...) as JSON.
type GarmentHistory struct {
	Id        uint           `json:"id" gorm:"primaryKey"`
	GarmentId uint           `json:"garment_id" gorm:"index;not null"`
	EventType string         `json:"event_type" gorm:"size:40;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}
