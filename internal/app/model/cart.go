package model

import "time"

// CartItem is a product snapshot plus the quantity the shopper intends to buy.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// CartSnapshot is a point-in-time view of a cart with its derived totals.
// Version grows with every mutation; a higher version is a newer cart.
type CartSnapshot struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	Version    uint64     `json:"version"`
}

// CartState is one persisted cart blob, keyed by its storage key.
type CartState struct {
	StorageKey string    `gorm:"column:storage_key;primaryKey;size:255" json:"storage_key"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (CartState) TableName() string {
	return "cart_states"
}
