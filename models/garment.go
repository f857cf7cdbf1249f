package models

import "time"

// Garment workflow stages. New/InProgress/ReadyForPickup are derived from the
// completion state of the garment's services and must never be set directly;
// Done is set by the explicit pickup confirmation.
const (
	StageNew            = "new"
	StageInProgress     = "in_progress"
	StageReadyForPickup = "ready_for_pickup"
	StageDone           = "done"
)

// Payment status of a single garment service.
const (
	ServiceUnpaid  = "unpaid"
	ServicePartial = "partial"
	ServicePaid    = "paid"
)

// Garment is one item of clothing tracked through the shop's workflow.
type Garment struct {
	Id      uint  `json:"id" gorm:"primaryKey"`
	OrderId uint  `json:"order_id" gorm:"index;not null"`
	Order   Order `json:"-" gorm:"foreignKey:OrderId;references:Id"`

	Name      string     `json:"name" gorm:"not null"`
	Stage     string     `json:"stage" gorm:"not null;default:'new'"`
	DueDate   *time.Time `json:"due_date"`
	EventDate *time.Time `json:"event_date"` // wedding, prom etc., optional

	Services []GarmentService `json:"services" gorm:"foreignKey:GarmentId"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GarmentService is one billable unit of work on a garment. InvoiceId is set
// exactly once, when the service is attached to an invoice.
type GarmentService struct {
	Id        uint `json:"id" gorm:"primaryKey"`
	GarmentId uint `json:"garment_id" gorm:"index;not null"`

	CatalogServiceId *string         `json:"catalog_service_id" gorm:"index"`
	CatalogService   *CatalogService `json:"-" gorm:"foreignKey:CatalogServiceId;references:Id"`

	Name           string `json:"name" gorm:"not null"`
	Unit           string `json:"unit" gorm:"not null;default:'item'"`
	UnitPriceCents int64  `json:"unit_price_cents" gorm:"not null"`
	Quantity       int    `json:"quantity" gorm:"not null;default:1"`

	IsDone          bool   `json:"is_done" gorm:"not null;default:false"`
	PaymentStatus   string `json:"payment_status" gorm:"not null;default:'unpaid'"`
	PaidAmountCents int64  `json:"paid_amount_cents" gorm:"not null;default:0"`
	InvoiceId       *uint  `json:"invoice_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotalCents is the service's billable total.
func (s GarmentService) LineTotalCents() int64 {
	return int64(s.Quantity) * s.UnitPriceCents
}
