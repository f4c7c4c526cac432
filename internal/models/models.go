package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product is immutable after creation, there are no edit or delete handlers.
type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Title       string          `gorm:"not null"                    json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Image       string          `json:"image"`
	SellerID    uint            `gorm:"index;not null"              json:"seller_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// At most one CartItem per (user, product) pair; a repeated add increments
// Quantity instead of creating a second row.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                                       json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_product;index" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_user_product"       json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"                       json:"quantity"`
}

// Purchase rows are append-only history, created at checkout.
type Purchase struct {
	ID          uint      `gorm:"primaryKey"     json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ProductID   uint      `gorm:"not null"       json:"product_id"`
	Quantity    uint      `gorm:"not null"       json:"quantity"`
	PurchasedAt time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}
