package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"agoda-scraper/tracker"
)

// ExportFailures writes the retry set once at run end, in the
// hotel-list schema plus a failure_reason column, so the file can be
// resubmitted unmodified as the next run's --hotels input.
func ExportFailures(path string, failed []tracker.FailedHotel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create failure export: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := append(append([]string{}, hotelCSVHeader...), "failure_reason")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failure export header: %w", err)
	}

	for _, fh := range failed {
		h := fh.Hotel
		rating := ""
		if h.Rating > 0 {
			rating = strconv.FormatFloat(h.Rating, 'f', 1, 64)
		}
		reviews := ""
		if h.ReviewCount > 0 {
			reviews = strconv.Itoa(h.ReviewCount)
		}
		stars := ""
		if h.StarRating > 0 {
			stars = strconv.Itoa(h.StarRating)
		}
		row := []string{h.Name, h.URL, rating, reviews, stars, h.Location, fh.Reason}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failure export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush failure export: %w", err)
	}
	return nil
}
