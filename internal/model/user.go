package model

import (
	"time"

	"gorm.io/gorm"
)

// User holds the checkout-relevant slice of a customer profile. Shipping
// fields are filled in (and overwritten) from the checkout form when gateway
// payment is enabled.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email   string `gorm:"size:190;uniqueIndex;not null" json:"email"`
	Address string `gorm:"size:255" json:"address"`
	Zipcode string `gorm:"size:16" json:"zipcode"`
	City    string `gorm:"size:128" json:"city"`
}

func (User) TableName() string { return "users" }
