package services

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"agoda-scraper/models"
)

// Collector is a RowWriter that keeps rows in memory so a report can
// be computed after the run. Wire it next to the durable sinks; it
// never fails an append.
type Collector struct {
	mu   sync.Mutex
	rows []models.RoomRecord
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Append(r models.RoomRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, r)
	return nil
}

func (c *Collector) Close() error { return nil }

func (c *Collector) Rows() []models.RoomRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RoomRecord, len(c.rows))
	copy(out, c.rows)
	return out
}

type Report struct {
	TotalRows       int
	RoomOffers      int
	AvailableOffers int
	AveragePrice    float64
	MinPrice        float64
	MaxPrice        float64
	MostExpensive   models.RoomRecord
	OffersByHotel   map[string]int
	CheapestByHotel map[string]float64
}

// GenerateReport computes price insights over the run's output.
// Sentinel rows are counted but never priced.
func GenerateReport(rows []models.RoomRecord) Report {
	report := Report{
		TotalRows:       len(rows),
		OffersByHotel:   make(map[string]int),
		CheapestByHotel: make(map[string]float64),
	}

	var (
		priceSum   float64
		priceCount int
		maxPrice   = -1.0
		minPrice   = math.MaxFloat64
	)

	for _, r := range rows {
		if r.Reason != models.ReasonSuccess {
			continue
		}
		report.RoomOffers++
		if r.Available {
			report.AvailableOffers++
		}

		hotel := r.HotelName
		if hotel == "" {
			hotel = "Unknown"
		}
		report.OffersByHotel[hotel]++

		if r.Price > 0 {
			priceSum += r.Price
			priceCount++

			if r.Price > maxPrice {
				maxPrice = r.Price
				report.MostExpensive = r
			}
			if r.Price < minPrice {
				minPrice = r.Price
			}
			if cheapest, ok := report.CheapestByHotel[hotel]; !ok || r.Price < cheapest {
				report.CheapestByHotel[hotel] = r.Price
			}
		}
	}

	if priceCount > 0 {
		report.AveragePrice = priceSum / float64(priceCount)
		report.MinPrice = minPrice
		report.MaxPrice = maxPrice
	}

	return report
}

func PrintReport(report Report) {
	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────────────────────┐")
	fmt.Println("│                       Room Rate Insights                     │")
	fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
	fmt.Printf("│ %-29s │ %-28d │\n", "Rows Written", report.TotalRows)
	fmt.Printf("│ %-29s │ %-28d │\n", "Room Offers", report.RoomOffers)
	fmt.Printf("│ %-29s │ %-28d │\n", "Available Offers", report.AvailableOffers)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Average Price", report.AveragePrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Minimum Price", report.MinPrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Maximum Price", report.MaxPrice)
	fmt.Println("└───────────────────────────────┴──────────────────────────────┘")

	if report.MostExpensive.RoomType != "" {
		fmt.Println()
		fmt.Println("┌──────────────────────────────────────────────────────────────┐")
		fmt.Println("│                     Most Expensive Offer                     │")
		fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
		fmt.Printf("│ %-29s │ %-28.2f │\n", "Price", report.MostExpensive.Price)
		fmt.Printf("│ %-29s │ %-28s │\n", "Date", report.MostExpensive.Date)
		fmt.Printf("│ %-29s │ %-28s │\n", "Hotel", truncateText(report.MostExpensive.HotelName, 28))
		fmt.Println("└───────────────────────────────┴──────────────────────────────┘")
		fmt.Printf("Room: %s\n", report.MostExpensive.RoomType)
	}

	if len(report.OffersByHotel) > 0 {
		fmt.Println()
		fmt.Println("┌──────────────────────────────────────────────┬───────────────┐")
		fmt.Println("│ Offers per Hotel                             │ Cheapest      │")
		fmt.Println("├──────────────────────────────────────────────┼───────────────┤")
		for _, hotel := range sortedHotels(report.OffersByHotel) {
			cheapest := "-"
			if p, ok := report.CheapestByHotel[hotel]; ok {
				cheapest = fmt.Sprintf("%.2f", p)
			}
			fmt.Printf("│ %-44s │ %-13s │\n", truncateText(hotel, 44), cheapest)
		}
		fmt.Println("└──────────────────────────────────────────────┴───────────────┘")
	}
}

func sortedHotels(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
