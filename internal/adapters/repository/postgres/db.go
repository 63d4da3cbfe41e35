package postgres

import (
	"errors"
	"fmt"
	"time"

	"cryptoarb/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func NewDbConnInstance(cfg *config.Repository) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, errors.New("Postgres configuration is nil")
	}

	db, err := sqlx.Connect("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to database: %w", err)
	}

	if cfg.MaxConn > 0 {
		db.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.MaxIdleConn > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func DSN(cfg *config.Repository) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUsername,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)
}
