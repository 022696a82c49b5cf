package services

import (
	"database/sql"
	"fmt"

	"coinmarket/internal/models"

	"github.com/rs/zerolog"
)

// listLimit caps catalog and order listings, matching the store's page size.
const listLimit = 100

type CoinService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCoinService(db *sql.DB, logger zerolog.Logger) *CoinService {
	return &CoinService{
		db:     db,
		logger: logger,
	}
}

func (s *CoinService) ListCoins() ([]*models.Coin, error) {
	rows, err := s.db.Query(
		"SELECT id, name, description, metal, weight_grams, year, country, price, stock, image_url FROM coins LIMIT ?",
		listLimit,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing coins")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	coins := []*models.Coin{}
	for rows.Next() {
		coin, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning coin: %w", err)
		}
		coins = append(coins, coin)
	}
	return coins, rows.Err()
}

func (s *CoinService) GetCoinByID(coinID int64) (*models.Coin, error) {
	row := s.db.QueryRow(
		"SELECT id, name, description, metal, weight_grams, year, country, price, stock, image_url FROM coins WHERE id = ?",
		coinID,
	)
	coin, err := scanCoin(row)
	if err == sql.ErrNoRows {
		return nil, ErrCoinNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Error fetching coin")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return coin, nil
}

func (s *CoinService) CreateCoin(req *models.CoinRequest) (*models.Coin, error) {
	result, err := s.db.Exec(
		"INSERT INTO coins (name, description, metal, weight_grams, year, country, price, stock, image_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		req.Name, req.Description, req.Metal, req.WeightGrams, req.Year, req.Country, req.Price, req.Stock, req.ImageURL,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating coin")
		return nil, fmt.Errorf("failed to create coin: %w", err)
	}

	coinID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get coin ID: %w", err)
	}

	coin, err := s.GetCoinByID(coinID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("coin_id", coin.ID).Str("name", coin.Name).Msg("Coin created")
	return coin, nil
}

// UpdateCoin replaces every mutable field. Last write wins on concurrent edits.
func (s *CoinService) UpdateCoin(coinID int64, req *models.CoinRequest) (*models.Coin, error) {
	if _, err := s.GetCoinByID(coinID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(
		"UPDATE coins SET name = ?, description = ?, metal = ?, weight_grams = ?, year = ?, country = ?, price = ?, stock = ?, image_url = ? WHERE id = ?",
		req.Name, req.Description, req.Metal, req.WeightGrams, req.Year, req.Country, req.Price, req.Stock, req.ImageURL, coinID,
	)
	if err != nil {
		s.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Error updating coin")
		return nil, fmt.Errorf("failed to update coin: %w", err)
	}

	s.logger.Info().Int64("coin_id", coinID).Msg("Coin updated")
	return s.GetCoinByID(coinID)
}

func (s *CoinService) DeleteCoin(coinID int64) error {
	result, err := s.db.Exec("DELETE FROM coins WHERE id = ?", coinID)
	if err != nil {
		s.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Error deleting coin")
		return fmt.Errorf("failed to delete coin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCoinNotFound
	}

	s.logger.Info().Int64("coin_id", coinID).Msg("Coin deleted")
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCoin(row scanner) (*models.Coin, error) {
	var coin models.Coin
	var imageURL sql.NullString

	err := row.Scan(
		&coin.ID, &coin.Name, &coin.Description, &coin.Metal, &coin.WeightGrams,
		&coin.Year, &coin.Country, &coin.Price, &coin.Stock, &imageURL,
	)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		coin.ImageURL = &imageURL.String
	}
	return &coin, nil
}
