package db

import (
	"context"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Open connects the pool and verifies the database is reachable before
// the server starts taking traffic. Transcription requests hold a
// connection across a long provider round trip, so the pool size is
// deployment-tunable rather than hardcoded.
func Open(dsn string, maxConns int) (*sqlx.DB, error) {
	if maxConns < 2 {
		maxConns = 2
	}
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	idle := maxConns / 4
	if idle < 2 {
		idle = 2
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
