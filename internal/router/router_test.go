package router

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"coinmarket/internal/config"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE coins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT,
	metal TEXT,
	weight_grams REAL,
	year INTEGER,
	country TEXT,
	price REAL NOT NULL,
	stock INTEGER NOT NULL,
	image_url TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	total REAL NOT NULL,
	status TEXT NOT NULL,
	payment_method TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	coin_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL
);
`

func setupTestServer(t *testing.T) (*mux.Router, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	cfg := config.Config{Port: "0", StaticDir: t.TempDir()}
	require.NoError(t, os.MkdirAll(cfg.UploadsDir(), 0o755))

	return SetupRouter(db, cfg, zerolog.Nop()), db
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func registerUser(t *testing.T, r *mux.Router, username, email string) *http.Cookie {
	t.Helper()

	rr := doJSON(t, r, "POST", "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "user_id" {
			return cookie
		}
	}
	t.Fatal("register did not set the user_id cookie")
	return nil
}

func promoteAdmin(t *testing.T, db *sql.DB, username string) {
	t.Helper()
	_, err := db.Exec("UPDATE users SET is_admin = 1 WHERE username = ?", username)
	require.NoError(t, err)
}

func insertCoin(t *testing.T, db *sql.DB, name string, price float64, stock int) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO coins (name, description, metal, weight_grams, year, country, price, stock) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		name, "test coin", "Gold", 31.1, 2024, "USA", price, stock,
	)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestAuthEndpoints(t *testing.T) {
	r, _ := setupTestServer(t)

	t.Run("register sets session cookie", func(t *testing.T) {
		cookie := registerUser(t, r, "alice", "alice@example.com")
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/auth/register", map[string]string{
			"username": "alice",
			"email":    "alice2@example.com",
			"password": "s3cret",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("me resolves the cookie", func(t *testing.T) {
		cookie := registerUser(t, r, "bob", "bob@example.com")

		rr := doJSON(t, r, "GET", "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			User *struct {
				Username string `json:"username"`
				IsAdmin  bool   `json:"is_admin"`
			} `json:"user"`
		}
		decodeBody(t, rr, &resp)
		require.NotNil(t, resp.User)
		assert.Equal(t, "bob", resp.User.Username)
		assert.False(t, resp.User.IsAdmin)
	})

	t.Run("me degrades to null without a session", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/auth/me", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"user": null}`, rr.Body.String())
	})

	t.Run("me degrades to null on a junk cookie", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/auth/me", nil, &http.Cookie{Name: "user_id", Value: "garbage"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"user": null}`, rr.Body.String())
	})

	t.Run("login", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/auth/login", map[string]string{
			"username": "alice",
			"password": "s3cret",
		})
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(t, r, "POST", "/api/auth/login", map[string]string{
			"username": "alice",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		cookie := registerUser(t, r, "carol", "carol@example.com")

		rr := doJSON(t, r, "POST", "/api/auth/logout", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var cleared *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "user_id" {
				cleared = c
			}
		}
		require.NotNil(t, cleared)
		assert.Less(t, cleared.MaxAge, 0)
	})
}

func TestCoinEndpointGating(t *testing.T) {
	r, db := setupTestServer(t)

	coinBody := map[string]any{
		"name":         "Silver Maple",
		"description":  "1 oz silver coin",
		"metal":        "Silver",
		"weight_grams": 31.1,
		"year":         2024,
		"country":      "Canada",
		"price":        35.50,
		"stock":        20,
	}

	t.Run("anonymous create on the public path", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/coins", coinBody)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("anonymous admin create is rejected", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/admin/coins", coinBody)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("non-admin update is forbidden and changes nothing", func(t *testing.T) {
		coinID := insertCoin(t, db, "Gold Eagle", 2150.00, 10)
		cookie := registerUser(t, r, "alice", "alice@example.com")

		update := map[string]any{
			"name":         "Hacked",
			"description":  "",
			"metal":        "Tin",
			"weight_grams": 1.0,
			"year":         1999,
			"country":      "Nowhere",
			"price":        0.01,
			"stock":        0,
		}
		rr := doJSON(t, r, "PUT", fmt.Sprintf("/api/admin/coins/%d", coinID), update, cookie)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		var name string
		var price float64
		require.NoError(t, db.QueryRow("SELECT name, price FROM coins WHERE id = ?", coinID).Scan(&name, &price))
		assert.Equal(t, "Gold Eagle", name)
		assert.InDelta(t, 2150.00, price, 0.001)
	})

	t.Run("admin update succeeds", func(t *testing.T) {
		coinID := insertCoin(t, db, "Krugerrand", 2100.00, 5)
		cookie := registerUser(t, r, "root", "root@example.com")
		promoteAdmin(t, db, "root")

		update := map[string]any{
			"name":         "Krugerrand",
			"description":  "1 oz gold coin",
			"metal":        "Gold",
			"weight_grams": 33.93,
			"year":         2024,
			"country":      "South Africa",
			"price":        2200.00,
			"stock":        5,
		}
		rr := doJSON(t, r, "PUT", fmt.Sprintf("/api/admin/coins/%d", coinID), update, cookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Price float64 `json:"price"`
		}
		decodeBody(t, rr, &resp)
		assert.InDelta(t, 2200.00, resp.Price, 0.001)
	})

	t.Run("anonymous delete on the public path", func(t *testing.T) {
		coinID := insertCoin(t, db, "Throwaway", 1.00, 1)

		rr := doJSON(t, r, "DELETE", fmt.Sprintf("/api/coins/%d", coinID), nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(t, r, "GET", fmt.Sprintf("/api/coins/%d", coinID), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestOrderEndpoints(t *testing.T) {
	r, db := setupTestServer(t)
	coinID := insertCoin(t, db, "Gold Eagle", 100.00, 10)

	orderBody := func(quantity int) map[string]any {
		return map[string]any{
			"customer_name":  "Alice",
			"customer_email": "alice@example.com",
			"items":          []map[string]any{{"coin_id": coinID, "quantity": quantity}},
		}
	}

	t.Run("anonymous checkout", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/orders", orderBody(2))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Status        string  `json:"status"`
			PaymentStatus string  `json:"payment_status"`
			PaymentMethod string  `json:"payment_method"`
			Total         float64 `json:"total"`
		}
		decodeBody(t, rr, &resp)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "pending", resp.PaymentStatus)
		assert.Equal(t, "twint", resp.PaymentMethod)
		assert.InDelta(t, 200.00, resp.Total, 0.001)
	})

	t.Run("unknown coin is 404", func(t *testing.T) {
		body := map[string]any{
			"customer_name":  "Alice",
			"customer_email": "alice@example.com",
			"items":          []map[string]any{{"coin_id": 4242, "quantity": 1}},
		}
		rr := doJSON(t, r, "POST", "/api/orders", body)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("excessive quantity is 400", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/orders", orderBody(100))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("payment confirmation is idempotent-guarded", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/orders", orderBody(3))
		require.Equal(t, http.StatusOK, rr.Code)

		var created struct {
			ID int64 `json:"_id"`
		}
		decodeBody(t, rr, &created)

		rr = doJSON(t, r, "POST", fmt.Sprintf("/api/orders/%d/confirm-payment", created.ID), nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var confirmed struct {
			Status        string `json:"status"`
			PaymentStatus string `json:"payment_status"`
		}
		decodeBody(t, rr, &confirmed)
		assert.Equal(t, "completed", confirmed.PaymentStatus)
		assert.Equal(t, "pending", confirmed.Status)

		rr = doJSON(t, r, "POST", fmt.Sprintf("/api/orders/%d/confirm-payment", created.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("confirming an unknown order is 404", func(t *testing.T) {
		rr := doJSON(t, r, "POST", "/api/orders/9999/confirm-payment", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestOrderListingAndAdmin(t *testing.T) {
	r, db := setupTestServer(t)
	coinID := insertCoin(t, db, "Gold Eagle", 100.00, 50)

	aliceCookie := registerUser(t, r, "alice", "alice@example.com")
	adminCookie := registerUser(t, r, "root", "root@example.com")
	promoteAdmin(t, db, "root")

	makeOrder := func(cookie *http.Cookie, name string) int64 {
		body := map[string]any{
			"customer_name":  name,
			"customer_email": name + "@example.com",
			"items":          []map[string]any{{"coin_id": coinID, "quantity": 1}},
		}
		var rr *httptest.ResponseRecorder
		if cookie != nil {
			rr = doJSON(t, r, "POST", "/api/orders", body, cookie)
		} else {
			rr = doJSON(t, r, "POST", "/api/orders", body)
		}
		require.Equal(t, http.StatusOK, rr.Code)

		var created struct {
			ID int64 `json:"_id"`
		}
		decodeBody(t, rr, &created)
		return created.ID
	}

	aliceOrder := makeOrder(aliceCookie, "alice")
	makeOrder(nil, "guest")

	t.Run("listing requires a session", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/orders", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("users see only their own orders", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/orders", nil, aliceCookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var orders []struct {
			CustomerName string `json:"customer_name"`
			Items        []struct {
				Coin *struct {
					Name string `json:"name"`
				} `json:"coin"`
			} `json:"items"`
		}
		decodeBody(t, rr, &orders)
		require.Len(t, orders, 1)
		assert.Equal(t, "alice", orders[0].CustomerName)
		require.Len(t, orders[0].Items, 1)
		require.NotNil(t, orders[0].Items[0].Coin)
		assert.Equal(t, "Gold Eagle", orders[0].Items[0].Coin.Name)
	})

	t.Run("admins see everything", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/orders", nil, adminCookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var orders []json.RawMessage
		decodeBody(t, rr, &orders)
		assert.Len(t, orders, 2)
	})

	t.Run("admin order listing is gated", func(t *testing.T) {
		rr := doJSON(t, r, "GET", "/api/admin/orders", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doJSON(t, r, "GET", "/api/admin/orders", nil, aliceCookie)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = doJSON(t, r, "GET", "/api/admin/orders", nil, adminCookie)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("status transitions", func(t *testing.T) {
		path := fmt.Sprintf("/api/admin/orders/%d/status", aliceOrder)

		rr := doJSON(t, r, "PUT", path, map[string]string{"status": "completed"}, adminCookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Status string `json:"status"`
		}
		decodeBody(t, rr, &resp)
		assert.Equal(t, "completed", resp.Status)

		rr = doJSON(t, r, "PUT", path, map[string]string{"status": "shipped"}, adminCookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = doJSON(t, r, "PUT", "/api/admin/orders/9999/status", map[string]string{"status": "completed"}, adminCookie)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doJSON(t, r, "PUT", path, map[string]string{"status": "completed"}, aliceCookie)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUploadEndpoint(t *testing.T) {
	r, db := setupTestServer(t)

	adminCookie := registerUser(t, r, "root", "root@example.com")
	promoteAdmin(t, db, "root")

	buildUpload := func(t *testing.T, filename, contentType string) (*bytes.Buffer, string) {
		t.Helper()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("not really an image"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		return &buf, writer.FormDataContentType()
	}

	doUpload := func(t *testing.T, filename, fileType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		t.Helper()

		body, contentType := buildUpload(t, filename, fileType)
		req := httptest.NewRequest("POST", "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		for _, cookie := range cookies {
			req.AddCookie(cookie)
		}

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	t.Run("admin upload returns a URL", func(t *testing.T) {
		rr := doUpload(t, "eagle.png", "image/png", adminCookie)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			URL string `json:"url"`
		}
		decodeBody(t, rr, &resp)
		assert.Contains(t, resp.URL, "/uploads/")
		assert.Contains(t, resp.URL, ".png")
	})

	t.Run("disallowed type is rejected", func(t *testing.T) {
		rr := doUpload(t, "evil.sh", "application/x-sh", adminCookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("anonymous upload is rejected", func(t *testing.T) {
		rr := doUpload(t, "eagle.png", "image/png")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
