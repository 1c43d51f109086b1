package models

import "time"

// ReasonCode is the terminal outcome of one (hotel, date) scrape task.
type ReasonCode string

const (
	ReasonSuccess            ReasonCode = "Success"
	ReasonNoRoomsFound       ReasonCode = "NoRoomsFound"
	ReasonSoldOut            ReasonCode = "SoldOut"
	ReasonAPIError           ReasonCode = "ApiError"
	ReasonNetworkError       ReasonCode = "NetworkError"
	ReasonMaxRetriesExceeded ReasonCode = "MaxRetriesExceeded"
)

// IsError reports whether the reason counts toward hotel-level failure
// classification. NoRoomsFound and SoldOut are legitimate negatives,
// not errors.
func (r ReasonCode) IsError() bool {
	switch r {
	case ReasonAPIError, ReasonNetworkError, ReasonMaxRetriesExceeded:
		return true
	}
	return false
}

// Hotel is the identity the workload is keyed on. Loaded once by the
// orchestrator and shared read-only across workers.
type Hotel struct {
	Name        string
	URL         string
	Rating      float64
	ReviewCount int
	StarRating  int
	Location    string
	Currency    string
}

// ScrapeTask pairs one hotel with one check-in date. Consumed exactly
// once by exactly one worker; retries create new attempts, never a new
// task.
type ScrapeTask struct {
	Hotel   Hotel
	CheckIn time.Time
}

// RoomRecord is the output unit: one room offer for one hotel on one
// date, or a sentinel row carrying a non-success reason code.
type RoomRecord struct {
	HotelName        string
	HotelLocation    string
	HotelRating      float64
	HotelStarRating  int
	HotelReviewCount int
	Date             string
	RoomType         string
	Price            float64
	Currency         string
	Amenities        []string
	Available        bool
	Cancellation     string
	MealPlan         string
	Reason           ReasonCode
}

// SentinelRecord builds the single row written for a task that
// produced no room offers.
func SentinelRecord(hotel Hotel, checkIn time.Time, reason ReasonCode) RoomRecord {
	return RoomRecord{
		HotelName:        hotel.Name,
		HotelLocation:    hotel.Location,
		HotelRating:      hotel.Rating,
		HotelStarRating:  hotel.StarRating,
		HotelReviewCount: hotel.ReviewCount,
		Date:             checkIn.Format("2006-01-02"),
		RoomType:         string(reason),
		Currency:         hotel.Currency,
		Available:        false,
		Reason:           reason,
	}
}

// HotelOutcome is the per-hotel aggregate built by the failure tracker.
// Immutable after Finalize.
type HotelOutcome struct {
	Hotel          Hotel
	DatesAttempted int
	ByReason       map[ReasonCode]int
	RoomsExtracted int
}

// ProgressSnapshot is a point-in-time view of the shared counters.
// Derived from current counter state, never accumulated by mutation.
type ProgressSnapshot struct {
	HotelsDone     int64
	HotelsTotal    int64
	RoomsExtracted int64
	Errors         int64
	FailedHotels   int64
	Elapsed        time.Duration
	HotelsPerHour  float64
	ETA            time.Duration
}
