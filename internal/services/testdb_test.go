package services

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
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

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestCoin(t *testing.T, db *sql.DB, name string, price float64, stock int) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO coins (name, description, metal, weight_grams, year, country, price, stock) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		name, "test coin", "Silver", 31.1, 2024, "USA", price, stock,
	)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func coinStock(t *testing.T, db *sql.DB, coinID int64) int {
	t.Helper()

	var stock int
	require.NoError(t, db.QueryRow("SELECT stock FROM coins WHERE id = ?", coinID).Scan(&stock))
	return stock
}
