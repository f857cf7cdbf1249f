package models

import "time"

const (
	OrderStatusOpen      = "open"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order is a single engagement with a client. It owns the garments being
// worked on and accumulates one or more invoices over its lifetime.
type Order struct {
	Id       uint   `json:"id" gorm:"primaryKey"`
	ClientId uint   `json:"client_id" gorm:"index;not null"`
	Client   Client `json:"client" gorm:"foreignKey:ClientId;references:Id"`

	Status string `json:"status" gorm:"not null;default:'open'"`
	Notes  string `json:"notes"`

	Garments []Garment `json:"garments" gorm:"foreignKey:OrderId"`
	Invoices []Invoice `json:"invoices" gorm:"foreignKey:OrderId"`

	CreatedAt time.Time `json:"created_at"`
}
