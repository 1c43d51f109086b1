package services

import (
	"testing"

	"agoda-scraper/models"
)

func TestGenerateReport(t *testing.T) {
	rows := []models.RoomRecord{
		{HotelName: "Grand Palace", RoomType: "Deluxe King", Price: 4000, Available: true, Reason: models.ReasonSuccess},
		{HotelName: "Grand Palace", RoomType: "Premier Suite", Price: 8000, Available: true, Reason: models.ReasonSuccess},
		{HotelName: "Budget Stay", RoomType: "Standard", Price: 1500, Available: false, Reason: models.ReasonSuccess},
		{HotelName: "Budget Stay", RoomType: "NoRoomsFound", Reason: models.ReasonNoRoomsFound},
	}

	r := GenerateReport(rows)

	if r.TotalRows != 4 || r.RoomOffers != 3 || r.AvailableOffers != 2 {
		t.Fatalf("counts wrong: %+v", r)
	}
	if r.AveragePrice != 4500 || r.MinPrice != 1500 || r.MaxPrice != 8000 {
		t.Fatalf("prices wrong: avg=%.2f min=%.2f max=%.2f", r.AveragePrice, r.MinPrice, r.MaxPrice)
	}
	if r.MostExpensive.RoomType != "Premier Suite" {
		t.Fatalf("most expensive = %+v", r.MostExpensive)
	}
	if r.OffersByHotel["Grand Palace"] != 2 || r.OffersByHotel["Budget Stay"] != 1 {
		t.Fatalf("offers by hotel: %v", r.OffersByHotel)
	}
	if r.CheapestByHotel["Budget Stay"] != 1500 {
		t.Fatalf("cheapest by hotel: %v", r.CheapestByHotel)
	}
}

func TestGenerateReportEmpty(t *testing.T) {
	r := GenerateReport(nil)
	if r.TotalRows != 0 || r.AveragePrice != 0 || r.MinPrice != 0 {
		t.Fatalf("empty report not zeroed: %+v", r)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	if err := c.Append(models.RoomRecord{HotelName: "A", Reason: models.ReasonSuccess}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := c.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	// Rows returns a copy, not the internal slice.
	rows[0].HotelName = "mutated"
	if c.Rows()[0].HotelName != "A" {
		t.Fatal("Rows leaked internal state")
	}
}
