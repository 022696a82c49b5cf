package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

const DefaultPaymentMethod = "twint"

// ValidOrderStatus reports whether s is one of the three allowed order states.
// Any status may transition to any other; only values outside the enum are rejected.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	CoinID   int64 `json:"coin_id"`
	Quantity int   `json:"quantity"`
}

type Order struct {
	ID            int64       `json:"_id"`
	UserID        *int64      `json:"user_id,omitempty"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Items         []OrderItem `json:"items"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	PaymentStatus string      `json:"payment_status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// EnrichedOrderItem embeds the full coin document for order listings.
// Coin is null when the referenced coin has been deleted from the catalog.
type EnrichedOrderItem struct {
	CoinID   int64 `json:"coin_id"`
	Quantity int   `json:"quantity"`
	Coin     *Coin `json:"coin"`
}

type OrderDetail struct {
	ID            int64               `json:"_id"`
	UserID        *int64              `json:"user_id,omitempty"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Items         []EnrichedOrderItem `json:"items"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	CreatedAt     time.Time           `json:"created_at"`
}

type CreateOrderRequest struct {
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Items         []OrderItem `json:"items"`
	PaymentMethod string      `json:"payment_method"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}
