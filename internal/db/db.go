package db

import (
	"database/sql"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
)

// InitDB opens the MySQL connection. The DSN needs parseTime=true so DATETIME
// columns scan into time.Time.
func InitDB(dbURL string) *sql.DB {
	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatal("Database not reachable:", err)
	}

	log.Println("Connected to database")
	return db
}

func RunMigrations(db *sql.DB) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS coins (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			metal VARCHAR(100),
			weight_grams DOUBLE,
			year INT,
			country VARCHAR(100),
			price DOUBLE NOT NULL,
			stock INT NOT NULL,
			image_url VARCHAR(512),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT,
			customer_name VARCHAR(255) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			total DOUBLE NOT NULL,
			status VARCHAR(50) NOT NULL,
			payment_method VARCHAR(50) NOT NULL,
			payment_status VARCHAR(50) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id INT AUTO_INCREMENT PRIMARY KEY,
			order_id INT NOT NULL,
			coin_id INT NOT NULL,
			quantity INT NOT NULL,
			INDEX idx_order_id (order_id)
		);`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			log.Fatal("Migration failed:", err)
		}
	}
	log.Println("Migrations completed")
}

// Seed inserts a sample coin when the catalog is empty and ensures the
// default admin account exists.
func Seed(db *sql.DB) {
	var coinCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM coins").Scan(&coinCount); err != nil {
		log.Fatal("Seed check failed:", err)
	}

	if coinCount == 0 {
		_, err := db.Exec(
			"INSERT INTO coins (name, description, metal, weight_grams, year, country, price, stock, image_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			"American Gold Eagle",
			"1 oz gold coin featuring Lady Liberty",
			"Gold", 31.1, 2024, "USA", 2150.00, 10,
			"https://images.unsplash.com/photo-1610375461246-83df859d849d?w=300",
		)
		if err != nil {
			log.Fatal("Failed to seed coins:", err)
		}
		log.Println("Seeded sample coin")
	}

	var adminID int64
	err := db.QueryRow("SELECT id FROM users WHERE username = ?", "admin").Scan(&adminID)
	if err == sql.ErrNoRows {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash admin password:", err)
		}
		_, err = db.Exec(
			"INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, ?)",
			"admin", "admin@coinmarket.local", string(hash), true,
		)
		if err != nil {
			log.Fatal("Failed to seed admin user:", err)
		}
		log.Println("Seeded admin user")
	} else if err != nil {
		log.Fatal("Seed check failed:", err)
	}
}
