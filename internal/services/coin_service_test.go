package services

import (
	"testing"

	"coinmarket/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinCRUD(t *testing.T) {
	db := setupTestDB(t)
	s := NewCoinService(db, zerolog.Nop())

	url := "https://example.com/eagle.jpg"
	created, err := s.CreateCoin(&models.CoinRequest{
		Name:        "American Gold Eagle",
		Description: "1 oz gold coin",
		Metal:       "Gold",
		WeightGrams: 31.1,
		Year:        2024,
		Country:     "USA",
		Price:       2150.00,
		Stock:       10,
		ImageURL:    &url,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	require.NotNil(t, created.ImageURL)
	assert.Equal(t, url, *created.ImageURL)

	fetched, err := s.GetCoinByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	coins, err := s.ListCoins()
	require.NoError(t, err)
	require.Len(t, coins, 1)

	updated, err := s.UpdateCoin(created.ID, &models.CoinRequest{
		Name:        "American Gold Eagle",
		Description: "1 oz gold coin featuring Lady Liberty",
		Metal:       "Gold",
		WeightGrams: 31.1,
		Year:        2025,
		Country:     "USA",
		Price:       2300.00,
		Stock:       7,
	})
	require.NoError(t, err)
	assert.Equal(t, 2025, updated.Year)
	assert.InDelta(t, 2300.00, updated.Price, 0.001)
	assert.Equal(t, 7, updated.Stock)
	assert.Nil(t, updated.ImageURL, "update is a full replace of mutable fields")

	require.NoError(t, s.DeleteCoin(created.ID))

	_, err = s.GetCoinByID(created.ID)
	assert.ErrorIs(t, err, ErrCoinNotFound)
}

func TestCoinMissing(t *testing.T) {
	db := setupTestDB(t)
	s := NewCoinService(db, zerolog.Nop())

	_, err := s.GetCoinByID(42)
	assert.ErrorIs(t, err, ErrCoinNotFound)

	_, err = s.UpdateCoin(42, &models.CoinRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrCoinNotFound)

	assert.ErrorIs(t, s.DeleteCoin(42), ErrCoinNotFound)
}
