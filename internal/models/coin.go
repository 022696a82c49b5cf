package models

// Coin is a sellable catalog item: a physical collectible coin listing.
type Coin struct {
	ID          int64   `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metal       string  `json:"metal"`
	WeightGrams float64 `json:"weight_grams"`
	Year        int     `json:"year"`
	Country     string  `json:"country"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    *string `json:"image_url"`
}

// CoinRequest carries the mutable coin fields for create and full-replace update.
type CoinRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metal       string  `json:"metal"`
	WeightGrams float64 `json:"weight_grams"`
	Year        int     `json:"year"`
	Country     string  `json:"country"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    *string `json:"image_url"`
}
