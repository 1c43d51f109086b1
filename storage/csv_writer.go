package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"agoda-scraper/models"
)

// RowWriter is the incremental sink workers append to. Append must be
// safe for concurrent invocation and must leave the row durable before
// it returns, so a crash loses at most the in-flight task.
type RowWriter interface {
	Append(models.RoomRecord) error
	Close() error
}

// roomCSVHeader matches the durable-artifact schema downstream tools
// read. One row per (hotel, date, room) tuple; sentinel rows carry the
// reason code in room_type.
var roomCSVHeader = []string{
	"hotel_name", "hotel_location", "hotel_rating", "hotel_star_rating",
	"hotel_review_count", "date", "room_type", "price", "currency",
	"amenities", "availability", "cancellation_policy", "meal_plan",
}

// CSVWriter appends room rows to a CSV file as they are produced.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(roomCSVHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{file: file, writer: writer}, nil
}

// Append writes one row and flushes it before returning. The critical
// section covers only the write itself, never any network wait.
func (w *CSVWriter) Append(r models.RoomRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(roomCSVRow(r)); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}

func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("csv flush on close: %w", err)
	}
	return w.file.Close()
}

func roomCSVRow(r models.RoomRecord) []string {
	availability := "Not Available"
	if r.Available {
		availability = "Available"
	}
	price := ""
	if r.Price > 0 {
		price = strconv.FormatFloat(r.Price, 'f', 2, 64)
	}
	rating := ""
	if r.HotelRating > 0 {
		rating = strconv.FormatFloat(r.HotelRating, 'f', 1, 64)
	}
	stars := ""
	if r.HotelStarRating > 0 {
		stars = strconv.Itoa(r.HotelStarRating)
	}
	reviews := ""
	if r.HotelReviewCount > 0 {
		reviews = strconv.Itoa(r.HotelReviewCount)
	}

	return []string{
		r.HotelName,
		r.HotelLocation,
		rating,
		stars,
		reviews,
		r.Date,
		r.RoomType,
		price,
		r.Currency,
		strings.Join(r.Amenities, ";"),
		availability,
		r.Cancellation,
		r.MealPlan,
	}
}
