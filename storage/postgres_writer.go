package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agoda-scraper/config"
	"agoda-scraper/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWriter mirrors the CSV sink into PostgreSQL, one insert per
// row so the database stays as current as the file.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

func NewPostgresWriter(cfg *config.Config) (*PostgresWriter, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) EnsureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sql := `
	CREATE TABLE IF NOT EXISTS room_rates (
		id BIGSERIAL PRIMARY KEY,
		hotel_name TEXT NOT NULL,
		hotel_location TEXT,
		hotel_rating NUMERIC(3,1),
		hotel_star_rating INT,
		hotel_review_count INT,
		check_in DATE NOT NULL,
		room_type TEXT NOT NULL,
		price NUMERIC(12,2),
		currency TEXT,
		amenities TEXT,
		available BOOLEAN NOT NULL,
		cancellation_policy TEXT,
		meal_plan TEXT,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_room_rates_hotel ON room_rates(hotel_name);
	CREATE INDEX IF NOT EXISTS idx_room_rates_check_in ON room_rates(check_in);
	`

	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// Append inserts one row. Called from many workers; pgxpool serializes
// nothing itself but each insert is independent, so no extra locking
// is needed here.
func (w *PostgresWriter) Append(r models.RoomRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sql := `
	INSERT INTO room_rates (
		hotel_name, hotel_location, hotel_rating, hotel_star_rating,
		hotel_review_count, check_in, room_type, price, currency,
		amenities, available, cancellation_policy, meal_plan, reason
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`

	var price interface{}
	if r.Price > 0 {
		price = r.Price
	}
	var rating interface{}
	if r.HotelRating > 0 {
		rating = r.HotelRating
	}

	_, err := w.pool.Exec(ctx, sql,
		strings.TrimSpace(r.HotelName),
		strings.TrimSpace(r.HotelLocation),
		rating,
		r.HotelStarRating,
		r.HotelReviewCount,
		r.Date,
		r.RoomType,
		price,
		r.Currency,
		strings.Join(r.Amenities, ";"),
		r.Available,
		r.Cancellation,
		r.MealPlan,
		string(r.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert room row: %w", err)
	}
	return nil
}

func (w *PostgresWriter) Close() error {
	if w.pool != nil {
		w.pool.Close()
	}
	return nil
}
