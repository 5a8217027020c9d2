package model

import "strings"

// Category is the catalog category a product is listed under.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog record as supplied by the product detail page.
// The cart treats it as a read-only snapshot.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Category Category `json:"category"`
	Rating   float64  `json:"rating"`
	Reviews  int      `json:"reviews"`
	Image    string   `json:"image"`
	Images   []string `json:"images"`
}

// HasID reports whether the product carries a usable identifier.
func (p Product) HasID() bool {
	return strings.TrimSpace(p.ID) != ""
}
