package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl     string
	Port      string
	StaticDir string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "./static"
	}

	return Config{
		DBUrl:     os.Getenv("DB_URL"),
		Port:      port,
		StaticDir: staticDir,
	}
}

// UploadsDir is where uploaded coin images land, served under /uploads.
func (c Config) UploadsDir() string {
	return filepath.Join(c.StaticDir, "uploads")
}
