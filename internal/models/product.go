package models

import (
	"time"
)

type Product struct {
	ProductID    string    `json:"product_id" db:"product_id"`
	Marketplace  string    `json:"marketplace" db:"marketplace"`
	ProductGroup string    `json:"product_group" db:"product_group"`
	UploadDate   time.Time `json:"upload_date" db:"upload_date"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description" db:"description"`
	Rating       *float64  `json:"rating" db:"rating"`
	Price        *float64  `json:"price" db:"price"`
	Currency     *string   `json:"currency" db:"currency"`
	NumImages    *int      `json:"num_images" db:"num_images"`
	SellerID     *int64    `json:"seller_id" db:"seller_id"`
}

// ProductRow is a standardized product record produced by a marketplace
// plugin. It carries the seller by (name, marketplace) rather than SellerID;
// the identity is resolved against the sellers table before the merge.
type ProductRow struct {
	ProductID    string    `json:"product_id"`
	Marketplace  string    `json:"marketplace"`
	ProductGroup string    `json:"product_group"`
	UploadDate   time.Time `json:"upload_date"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	Currency     *string   `json:"currency,omitempty"`
	SellerName   *string   `json:"seller_name,omitempty"`
	Query        string    `json:"query,omitempty"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
}
