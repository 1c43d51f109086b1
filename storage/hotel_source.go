package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"agoda-scraper/models"
	"agoda-scraper/utils"
)

// hotelCSVHeader is the hotel-list schema. The failure export uses the
// same columns plus a reason, so an export feeds straight back in as a
// new run's input.
var hotelCSVHeader = []string{"name", "url", "rating", "review_count", "star_rating", "location"}

// LoadHotels reads the hotel list, skipping offset rows and capping at
// limit when limit > 0. Rows with no URL are skipped with a warning
// rather than aborting the run.
func LoadHotels(path string, offset, limit int) ([]models.Hotel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hotel list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read hotel header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, fmt.Errorf("hotel list %s has no url column", path)
	}

	var hotels []models.Hotel
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			utils.Warn("Skipping malformed hotel row: %v", err)
			continue
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		url := get("url")
		if url == "" {
			utils.Warn("Skipping hotel row without URL (name=%q)", get("name"))
			continue
		}

		rating, _ := strconv.ParseFloat(get("rating"), 64)
		reviews, _ := strconv.Atoi(get("review_count"))
		stars, _ := strconv.Atoi(get("star_rating"))

		hotels = append(hotels, models.Hotel{
			Name:        get("name"),
			URL:         url,
			Rating:      rating,
			ReviewCount: reviews,
			StarRating:  stars,
			Location:    get("location"),
			Currency:    "INR",
		})
	}

	if offset > 0 {
		if offset >= len(hotels) {
			return nil, nil
		}
		hotels = hotels[offset:]
	}
	if limit > 0 && limit < len(hotels) {
		hotels = hotels[:limit]
	}

	return hotels, nil
}
