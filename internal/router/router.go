package router

import (
	"database/sql"
	"net/http"
	"path/filepath"

	"coinmarket/internal/config"
	"coinmarket/internal/handlers"
	"coinmarket/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// pages maps the storefront paths to the HTML file each one serves.
var pages = map[string]string{
	"/":         "index.html",
	"/login":    "login.html",
	"/register": "register.html",
	"/orders":   "orders.html",
	"/admin":    "admin.html",
	"/manage":   "manage.html",
}

func SetupRouter(db *sql.DB, cfg config.Config, logger zerolog.Logger) *mux.Router {
	authHandler := handlers.NewAuthHandler(db, logger)
	coinHandler := handlers.NewCoinHandler(db, logger)
	orderHandler := handlers.NewOrderHandler(db, logger)
	uploadHandler := handlers.NewUploadHandler(cfg.UploadsDir(), logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(100), 200)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.Session(db, logger))

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	auth.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Create and delete stay open here; the gated equivalents live under
	// /api/admin/coins. Both sets are kept for client compatibility.
	coins := r.PathPrefix("/api/coins").Subrouter()
	coins.HandleFunc("", coinHandler.GetCoins).Methods("GET")
	coins.HandleFunc("", coinHandler.CreateCoin).Methods("POST")
	coins.HandleFunc("/{id}", coinHandler.GetCoin).Methods("GET")
	coins.HandleFunc("/{id}", coinHandler.DeleteCoin).Methods("DELETE")

	orders := r.PathPrefix("/api/orders").Subrouter()
	orders.HandleFunc("", orderHandler.CreateOrder).Methods("POST")
	orders.HandleFunc("", orderHandler.GetOrders).Methods("GET")
	orders.HandleFunc("/{id}/confirm-payment", orderHandler.ConfirmPayment).Methods("POST")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.RequireAdmin())
	admin.Use(middleware.RequestValidation())
	admin.HandleFunc("/orders", orderHandler.GetAllOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", orderHandler.UpdateOrderStatus).Methods("PUT")
	admin.HandleFunc("/coins", coinHandler.CreateCoin).Methods("POST")
	admin.HandleFunc("/coins/{id}", coinHandler.UpdateCoin).Methods("PUT")
	admin.HandleFunc("/coins/{id}", coinHandler.DeleteCoin).Methods("DELETE")

	upload := r.PathPrefix("/api/upload").Subrouter()
	upload.Use(middleware.RequireAdmin())
	upload.HandleFunc("", uploadHandler.Upload).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	for path, file := range pages {
		r.HandleFunc(path, servePage(cfg.StaticDir, file)).Methods("GET")
	}
	r.HandleFunc("/coin/{id}", servePage(cfg.StaticDir, "coin.html")).Methods("GET")

	// Everything else (app.js, stylesheets, /uploads/*) comes off disk.
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	return r
}

func servePage(staticDir, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, name))
	}
}
