package agoda

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agoda-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// ErrSoldOut signals an empty result carrying an explicit sold-out
// marker. Distinct from "no rooms found": sold out is a definitive
// answer from the site, not a failure to extract.
var ErrSoldOut = errors.New("hotel sold out for this date")

// Extractor turns a rendered page and any intercepted API payloads
// into room records. Pure function of its inputs — no side effects, no
// network access.
type Extractor interface {
	Extract(html string, payloads [][]byte, hotel models.Hotel, checkIn time.Time) ([]models.RoomRecord, error)
}

// ChainExtractor tries each strategy in order; the first one that
// produces rooms (or a definitive sold-out) wins. The JSON API payload
// is the most reliable source, the DOM is the fallback once selectors
// drift.
type ChainExtractor struct {
	strategies []Extractor
}

func NewChainExtractor(strategies ...Extractor) *ChainExtractor {
	return &ChainExtractor{strategies: strategies}
}

// DefaultExtractor is the production chain: intercepted JSON first,
// then goquery over the rendered markup.
func DefaultExtractor() *ChainExtractor {
	return NewChainExtractor(&JSONExtractor{}, &DOMExtractor{})
}

func (c *ChainExtractor) Extract(html string, payloads [][]byte, hotel models.Hotel, checkIn time.Time) ([]models.RoomRecord, error) {
	var lastErr error
	for _, s := range c.strategies {
		rooms, err := s.Extract(html, payloads, hotel, checkIn)
		if errors.Is(err, ErrSoldOut) {
			return nil, err
		}
		if err != nil {
			lastErr = err
			continue
		}
		if len(rooms) > 0 {
			return rooms, nil
		}
	}
	return nil, lastErr
}

// JSONExtractor parses the intercepted rooms-API payloads.
type JSONExtractor struct{}

// secondaryData mirrors the fragment of the rooms API response we
// consume. Unknown fields are ignored.
type secondaryData struct {
	RoomGridData struct {
		SoldOut     bool `json:"soldOut"`
		MasterRooms []struct {
			Name  string `json:"name"`
			Rooms []struct {
				RoomName         string   `json:"roomName"`
				Price            float64  `json:"price"`
				CurrencyCode     string   `json:"currencyCode"`
				Amenities        []string `json:"amenities"`
				FreeCancellation bool     `json:"freeCancellation"`
				MealPlan         string   `json:"mealPlan"`
				SoldOut          bool     `json:"soldOut"`
			} `json:"rooms"`
		} `json:"masterRooms"`
	} `json:"roomGridData"`
}

func (e *JSONExtractor) Extract(_ string, payloads [][]byte, hotel models.Hotel, checkIn time.Time) ([]models.RoomRecord, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	var records []models.RoomRecord
	soldOut := false

	for _, payload := range payloads {
		var data secondaryData
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("rooms api payload: %w", err)
		}

		if data.RoomGridData.SoldOut {
			soldOut = true
		}

		for _, master := range data.RoomGridData.MasterRooms {
			for _, room := range master.Rooms {
				name := room.RoomName
				if name == "" {
					name = master.Name
				}
				if !isValidRoomName(name) {
					continue
				}

				currency := room.CurrencyCode
				if currency == "" {
					currency = hotel.Currency
				}
				cancellation := ""
				if room.FreeCancellation {
					cancellation = "Free cancellation"
				}

				records = append(records, roomRecord(hotel, checkIn, name, room.Price, currency,
					room.Amenities, !room.SoldOut, cancellation, room.MealPlan))
			}
		}
	}

	if len(records) == 0 && soldOut {
		return nil, ErrSoldOut
	}
	return records, nil
}

// DOMExtractor scrapes the rendered room grid. Selector list follows
// what the target site actually serves; the panel attribute is the
// anchor, everything else is read relative to it.
type DOMExtractor struct{}

func (e *DOMExtractor) Extract(html string, _ [][]byte, hotel models.Hotel, checkIn time.Time) ([]models.RoomRecord, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var records []models.RoomRecord
	soldOutSeen := false

	panels := doc.Find(`[data-selenium="room-panel"], .MasterRoom`)
	panels.Each(func(_ int, panel *goquery.Selection) {
		name := strings.TrimSpace(panel.Find(`[data-selenium="room-name"]`).First().Text())
		if !isValidRoomName(name) {
			return
		}

		soldOut := panel.Find(`[data-selenium*="sold-out"], [data-selenium*="soldout"]`).Length() > 0
		if soldOut {
			soldOutSeen = true
		}

		priceText := panel.Find(`[data-ppapi="room-price"], [data-element-name="final-price"]`).First().Text()
		price := parsePrice(priceText)

		var amenities []string
		panel.Find(`[data-element-name="room-feature"]`).Each(func(_ int, s *goquery.Selection) {
			if a := strings.TrimSpace(s.Text()); a != "" {
				amenities = append(amenities, a)
			}
		})

		cancellation := strings.TrimSpace(panel.Find(`[data-element-name="room-cancellation"]`).First().Text())
		mealPlan := strings.TrimSpace(panel.Find(`[data-element-name="room-breakfast"]`).First().Text())

		records = append(records, roomRecord(hotel, checkIn, name, price, hotel.Currency,
			amenities, !soldOut, cancellation, mealPlan))
	})

	if len(records) == 0 {
		if soldOutSeen || doc.Find(`[data-selenium="sold-out-banner"]`).Length() > 0 {
			return nil, ErrSoldOut
		}
		return nil, nil
	}
	return records, nil
}

func roomRecord(hotel models.Hotel, checkIn time.Time, roomType string, price float64, currency string,
	amenities []string, available bool, cancellation, mealPlan string) models.RoomRecord {
	return models.RoomRecord{
		HotelName:        hotel.Name,
		HotelLocation:    hotel.Location,
		HotelRating:      hotel.Rating,
		HotelStarRating:  hotel.StarRating,
		HotelReviewCount: hotel.ReviewCount,
		Date:             checkIn.Format("2006-01-02"),
		RoomType:         roomType,
		Price:            price,
		Currency:         currency,
		Amenities:        amenities,
		Available:        available,
		Cancellation:     cancellation,
		MealPlan:         mealPlan,
		Reason:           models.ReasonSuccess,
	}
}

var priceDigits = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

func parsePrice(text string) float64 {
	match := priceDigits.FindString(text)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// UI text that must not be treated as a room name. The room grid
// interleaves FAQ entries and promo banners with real rooms.
var roomNameBlacklist = []string{
	"select your room",
	"show more rooms",
	"view all rooms",
	"see all rooms",
	"book now",
	"check availability",
	"free wifi",
	"express check-in",
}

func isValidRoomName(name string) bool {
	if len(name) < 3 || len(name) > 120 {
		return false
	}
	if strings.Contains(name, "?") || strings.Contains(name, "!") {
		return false
	}
	lower := strings.ToLower(name)
	for _, banned := range roomNameBlacklist {
		if strings.Contains(lower, banned) {
			return false
		}
	}
	return true
}
