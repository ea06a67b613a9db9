package models

type Seller struct {
	SellerID    int64   `json:"seller_id" db:"seller_id"`
	Name        string  `json:"name" db:"name"`
	Marketplace string  `json:"marketplace" db:"marketplace"`
	URL         *string `json:"url" db:"url"`
}

// SellerRow is a standardized seller record produced by a marketplace plugin,
// before a durable SellerID has been assigned.
type SellerRow struct {
	Name        string  `json:"name"`
	Marketplace string  `json:"marketplace"`
	URL         *string `json:"url,omitempty"`
}
