package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coinmarket/internal/models"
	"coinmarket/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type CoinHandler struct {
	coinService *services.CoinService
	logger      zerolog.Logger
}

func NewCoinHandler(db *sql.DB, logger zerolog.Logger) *CoinHandler {
	return &CoinHandler{
		coinService: services.NewCoinService(db, logger),
		logger:      logger,
	}
}

func (h *CoinHandler) GetCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := h.coinService.ListCoins()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list coins")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch coins")
		return
	}

	h.respondWithJSON(w, http.StatusOK, coins)
}

func (h *CoinHandler) GetCoin(w http.ResponseWriter, r *http.Request) {
	coinID, ok := h.coinIDFromPath(w, r)
	if !ok {
		return
	}

	coin, err := h.coinService.GetCoinByID(coinID)
	if err != nil {
		if errors.Is(err, services.ErrCoinNotFound) {
			h.respondWithError(w, http.StatusNotFound, "coin_not_found", "Coin not found")
			return
		}
		h.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Failed to fetch coin")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch coin")
		return
	}

	h.respondWithJSON(w, http.StatusOK, coin)
}

func (h *CoinHandler) CreateCoin(w http.ResponseWriter, r *http.Request) {
	var req models.CoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	coin, err := h.coinService.CreateCoin(&req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create coin")
		h.respondWithError(w, http.StatusInternalServerError, "create_failed", "Failed to create coin")
		return
	}

	h.respondWithJSON(w, http.StatusOK, coin)
}

func (h *CoinHandler) UpdateCoin(w http.ResponseWriter, r *http.Request) {
	coinID, ok := h.coinIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.CoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	coin, err := h.coinService.UpdateCoin(coinID, &req)
	if err != nil {
		if errors.Is(err, services.ErrCoinNotFound) {
			h.respondWithError(w, http.StatusNotFound, "coin_not_found", "Coin not found")
			return
		}
		h.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Failed to update coin")
		h.respondWithError(w, http.StatusInternalServerError, "update_failed", "Failed to update coin")
		return
	}

	h.respondWithJSON(w, http.StatusOK, coin)
}

func (h *CoinHandler) DeleteCoin(w http.ResponseWriter, r *http.Request) {
	coinID, ok := h.coinIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.coinService.DeleteCoin(coinID); err != nil {
		if errors.Is(err, services.ErrCoinNotFound) {
			h.respondWithError(w, http.StatusNotFound, "coin_not_found", "Coin not found")
			return
		}
		h.logger.Error().Err(err).Int64("coin_id", coinID).Msg("Failed to delete coin")
		h.respondWithError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete coin")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Coin deleted"})
}

func (h *CoinHandler) coinIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	coinID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_coin_id", "Invalid coin ID")
		return 0, false
	}
	return coinID, true
}

func (h *CoinHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *CoinHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
