package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"agoda-scraper/models"
)

func TestCSVWriterAppendIsDurablePerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	rec := models.RoomRecord{
		HotelName:       "Grand Palace",
		HotelLocation:   "Jaipur",
		HotelRating:     8.7,
		HotelStarRating: 4,
		Date:            "2026-09-01",
		RoomType:        "Deluxe King",
		Price:           4250.50,
		Currency:        "INR",
		Amenities:       []string{"Free WiFi", "Breakfast"},
		Available:       true,
		Cancellation:    "Free cancellation",
		MealPlan:        "Breakfast included",
		Reason:          models.ReasonSuccess,
	}
	if err := w.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Row must be on disk before Close, not buffered.
	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("got %d rows before Close, want header + 1", len(rows))
	}
	got := rows[1]
	if got[0] != "Grand Palace" || got[6] != "Deluxe King" || got[7] != "4250.50" {
		t.Fatalf("unexpected row: %v", got)
	}
	if got[9] != "Free WiFi;Breakfast" {
		t.Fatalf("amenities = %q", got[9])
	}
	if got[10] != "Available" {
		t.Fatalf("availability = %q", got[10])
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCSVWriterSentinelRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	defer w.Close()

	h := models.Hotel{Name: "Empty Inn", Location: "Jaipur", Currency: "INR"}
	checkIn := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	if err := w.Append(models.SentinelRecord(h, checkIn, models.ReasonNoRoomsFound)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readCSV(t, path)
	got := rows[1]
	if got[5] != "2026-09-15" {
		t.Fatalf("date = %q", got[5])
	}
	if got[6] != "NoRoomsFound" {
		t.Fatalf("sentinel room_type = %q, want the reason code", got[6])
	}
	if got[7] != "" {
		t.Fatalf("sentinel price = %q, want empty", got[7])
	}
	if got[10] != "Not Available" {
		t.Fatalf("availability = %q", got[10])
	}
}

func TestCSVWriterConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				rec := models.RoomRecord{HotelName: "H", Date: "2026-09-01", RoomType: "Standard", Available: true}
				if err := w.Append(rec); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != writers*perWriter+1 {
		t.Fatalf("got %d rows, want %d", len(rows), writers*perWriter+1)
	}
	// Interleaved writers must never corrupt a row.
	for i, row := range rows {
		if len(row) != len(roomCSVHeader) {
			t.Fatalf("row %d has %d fields, want %d", i, len(row), len(roomCSVHeader))
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}
