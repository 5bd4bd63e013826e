package models

import (
	"time"
)

// User is the credential store record. Password hash and the one-shot
// verification/reset fields never serialize.
type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email        string     `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string     `gorm:"not null"                  json:"-"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Role         string     `gorm:"not null;default:user"     json:"role"`
	IsVerified   bool       `gorm:"default:false"             json:"isVerified"`
	LastLogin    *time.Time `json:"lastLogin"`

	// one-shot tokens: empty string / zero expiry means absent
	VerificationToken          string `gorm:"index"  json:"-"`
	VerificationTokenExpiresAt int64  `json:"-"`
	ResetPasswordToken         string `gorm:"index"  json:"-"`
	ResetPasswordExpiresAt     int64  `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Cart struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"      json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"          json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

// CartItem rows are unique per (ProductID, Weight) within one cart;
// adding a matching item increments Quantity instead of duplicating.
// Name/Image/Price are display fields carried opaquely from the caller.
type CartItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"                json:"-"`
	CartID    uint    `gorm:"index:idx_cart_product_weight,unique;not null" json:"-"`
	ProductID string  `gorm:"index:idx_cart_product_weight,unique;not null" json:"id"`
	Weight    string  `gorm:"index:idx_cart_product_weight,unique"    json:"weight"`
	Quantity  int     `gorm:"not null"                                json:"quantity"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string  `gorm:"not null"                  json:"name"`
	Description string  `gorm:"not null"                  json:"description"`
	Price       float64 `gorm:"not null"                  json:"price"`
	Weight      string  `json:"weight"`
	Image       string  `json:"image"`
	Count       uint    `json:"count"`
}
