package agoda

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// BuildHotelURL rewrites a hotel page URL with the stay parameters for
// one task. Existing query parameters are preserved; date, guest and
// room counts are replaced. Check-out is always the next day — the
// workload prices single-night stays.
func BuildHotelURL(hotelURL string, checkIn time.Time, guests, rooms int) (string, error) {
	parsed, err := url.Parse(hotelURL)
	if err != nil {
		return "", fmt.Errorf("parse hotel url: %w", err)
	}

	q := parsed.Query()
	q.Set("checkIn", checkIn.Format("2006-01-02"))
	q.Set("checkOut", checkIn.AddDate(0, 0, 1).Format("2006-01-02"))
	q.Set("adults", strconv.Itoa(guests))
	q.Set("rooms", strconv.Itoa(rooms))
	q.Set("children", "0")
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}
