package models

import "time"

// Client is a customer of the shop (tenant-scoped).
type Client struct {
	Id          uint      `json:"id" gorm:"primaryKey"`
	FirstName   string    `json:"first_name" gorm:"not null"`
	LastName    string    `json:"last_name" gorm:"not null"`
	Email       string    `json:"email" gorm:"index"`
	PhoneNumber string    `json:"phone_number"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Zip         string    `json:"zip"`
	Notes       string    `json:"notes"`
	Active      bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
