package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"walletapp/internal/domain"
)

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewPostgresDB(cfg DBConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// SQLDB adapts *sql.DB to domain.DB so services can be handed a fake
// transaction opener in tests.
type SQLDB struct {
	*sql.DB
}

func NewSQLDB(db *sql.DB) *SQLDB {
	return &SQLDB{DB: db}
}

func (d *SQLDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (domain.Tx, error) {
	return d.DB.BeginTx(ctx, opts)
}
