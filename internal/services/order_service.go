package services

import (
	"database/sql"
	"fmt"

	"coinmarket/internal/models"

	"github.com/rs/zerolog"
)

type OrderService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewOrderService(db *sql.DB, logger zerolog.Logger) *OrderService {
	return &OrderService{
		db:     db,
		logger: logger,
	}
}

// CreateOrder validates every line item against the current catalog, snapshots
// the total at today's prices and persists the order as pending/pending.
// Stock is not touched here; it is decremented when payment is confirmed.
func (s *OrderService) CreateOrder(req *models.CreateOrderRequest, userID *int64) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var total float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		var name string
		var price float64
		var stock int
		err := s.db.QueryRow("SELECT name, price, stock FROM coins WHERE id = ?", item.CoinID).
			Scan(&name, &price, &stock)
		if err == sql.ErrNoRows {
			return nil, ErrCoinNotFound
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("coin_id", item.CoinID).Msg("Error fetching coin for order")
			return nil, fmt.Errorf("database error: %w", err)
		}

		if stock < item.Quantity {
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, name)
		}
		total += price * float64(item.Quantity)
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting order transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO orders (user_id, customer_name, customer_email, total, status, payment_method, payment_status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		userID, req.CustomerName, req.CustomerEmail, total,
		string(models.OrderStatusPending), paymentMethod, string(models.PaymentStatusPending),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order ID: %w", err)
	}

	for _, item := range req.Items {
		_, err := tx.Exec(
			"INSERT INTO order_items (order_id, coin_id, quantity) VALUES (?, ?, ?)",
			orderID, item.CoinID, item.Quantity,
		)
		if err != nil {
			s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error creating order item")
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing order transaction")
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Float64("total", order.Total).
		Int("items", len(order.Items)).
		Msg("Order created")

	return order, nil
}

// ConfirmPayment marks the order paid and decrements stock exactly once.
// The whole confirmation runs in one transaction and every decrement is a
// conditional update guarded by `stock >= quantity`, so concurrent
// confirmations can never drive stock negative and a failed line item rolls
// back the decrements already applied. Order status stays pending; fulfilment
// approval is a separate admin step.
func (s *OrderService) ConfirmPayment(orderID int64) (*models.Order, error) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting payment transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var paymentStatus string
	err = tx.QueryRow("SELECT payment_status FROM orders WHERE id = ?", orderID).Scan(&paymentStatus)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error fetching order")
		return nil, fmt.Errorf("database error: %w", err)
	}

	if paymentStatus == string(models.PaymentStatusCompleted) {
		return nil, ErrPaymentAlreadyCompleted
	}

	rows, err := tx.Query("SELECT coin_id, quantity FROM order_items WHERE order_id = ?", orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error fetching order items")
		return nil, fmt.Errorf("database error: %w", err)
	}

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.CoinID, &item.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("database error: %w", err)
	}
	rows.Close()

	for _, item := range items {
		result, err := tx.Exec(
			"UPDATE coins SET stock = stock - ? WHERE id = ? AND stock >= ?",
			item.Quantity, item.CoinID, item.Quantity,
		)
		if err != nil {
			s.logger.Error().Err(err).Int64("coin_id", item.CoinID).Msg("Error decrementing stock")
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			var name string
			err := tx.QueryRow("SELECT name FROM coins WHERE id = ?", item.CoinID).Scan(&name)
			if err == sql.ErrNoRows {
				return nil, ErrCoinNotFound
			}
			if err != nil {
				return nil, fmt.Errorf("database error: %w", err)
			}
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, name)
		}
	}

	// The guard repeats here so two in-flight confirmations cannot both commit.
	result, err := tx.Exec(
		"UPDATE orders SET payment_status = ? WHERE id = ? AND payment_status != ?",
		string(models.PaymentStatusCompleted), orderID, string(models.PaymentStatusCompleted),
	)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error updating payment status")
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrPaymentAlreadyCompleted
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing payment transaction")
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().Int64("order_id", orderID).Int("items", len(items)).Msg("Payment confirmed, stock decremented")

	return s.GetOrderByID(orderID)
}

// UpdateStatus overwrites the order status unconditionally; any of the three
// allowed states may follow any other, including re-opening a completed order.
func (s *OrderService) UpdateStatus(orderID int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	var existingID int64
	err := s.db.QueryRow("SELECT id FROM orders WHERE id = ?", orderID).Scan(&existingID)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error fetching order")
		return nil, fmt.Errorf("database error: %w", err)
	}

	if _, err := s.db.Exec("UPDATE orders SET status = ? WHERE id = ?", status, orderID); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error updating order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info().Int64("order_id", orderID).Str("status", status).Msg("Order status updated")
	return s.GetOrderByID(orderID)
}

func (s *OrderService) GetOrderByID(orderID int64) (*models.Order, error) {
	var order models.Order
	var userID sql.NullInt64

	err := s.db.QueryRow(
		"SELECT id, user_id, customer_name, customer_email, total, status, payment_method, payment_status, created_at FROM orders WHERE id = ?",
		orderID,
	).Scan(
		&order.ID, &userID, &order.CustomerName, &order.CustomerEmail, &order.Total,
		&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error fetching order")
		return nil, fmt.Errorf("database error: %w", err)
	}

	if userID.Valid {
		order.UserID = &userID.Int64
	}

	items, err := s.getOrderItems(orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// ListOrders returns every order with items enriched by the full coin document.
func (s *OrderService) ListOrders() ([]*models.OrderDetail, error) {
	return s.listOrders("SELECT id, user_id, customer_name, customer_email, total, status, payment_method, payment_status, created_at FROM orders ORDER BY id LIMIT ?", listLimit)
}

// ListOrdersByUser returns only the orders attached to the given user.
func (s *OrderService) ListOrdersByUser(userID int64) ([]*models.OrderDetail, error) {
	return s.listOrders("SELECT id, user_id, customer_name, customer_email, total, status, payment_method, payment_status, created_at FROM orders WHERE user_id = ? ORDER BY id LIMIT ?", userID, listLimit)
}

func (s *OrderService) listOrders(query string, args ...any) ([]*models.OrderDetail, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing orders")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	orders := []*models.OrderDetail{}
	for rows.Next() {
		var order models.OrderDetail
		var userID sql.NullInt64

		err := rows.Scan(
			&order.ID, &userID, &order.CustomerName, &order.CustomerEmail, &order.Total,
			&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		if userID.Valid {
			order.UserID = &userID.Int64
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	for _, order := range orders {
		items, err := s.getEnrichedItems(order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

func (s *OrderService) getOrderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := s.db.Query("SELECT coin_id, quantity FROM order_items WHERE order_id = ?", orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("Error fetching order items")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.CoinID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *OrderService) getEnrichedItems(orderID int64) ([]models.EnrichedOrderItem, error) {
	plain, err := s.getOrderItems(orderID)
	if err != nil {
		return nil, err
	}

	items := make([]models.EnrichedOrderItem, 0, len(plain))
	for _, item := range plain {
		enriched := models.EnrichedOrderItem{CoinID: item.CoinID, Quantity: item.Quantity}

		row := s.db.QueryRow(
			"SELECT id, name, description, metal, weight_grams, year, country, price, stock, image_url FROM coins WHERE id = ?",
			item.CoinID,
		)
		coin, err := scanCoin(row)
		if err != nil && err != sql.ErrNoRows {
			s.logger.Error().Err(err).Int64("coin_id", item.CoinID).Msg("Error enriching order item")
			return nil, fmt.Errorf("database error: %w", err)
		}
		if err == nil {
			enriched.Coin = coin
		}
		items = append(items, enriched)
	}
	return items, nil
}
