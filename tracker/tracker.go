// Package tracker aggregates per-date outcomes into per-hotel
// classifications. Concurrent map mutation here would be a data race,
// not a style choice — every access goes through the mutex.
package tracker

import (
	"fmt"
	"sync"

	"agoda-scraper/models"
)

// Classification is the final verdict for one hotel.
type Classification int

const (
	// Healthy covers hotels that produced rows, or whose empty dates
	// were legitimate negatives (NoRoomsFound, SoldOut).
	Healthy Classification = iota
	// RetryableFailure marks hotels likely hit by transient errors,
	// eligible for resubmission.
	RetryableFailure
	// Unprocessed marks hotels whose worker never attempted them,
	// e.g. because its browser context could not be created.
	Unprocessed
)

// FailedHotel is one row of the retry export: the original hotel plus
// a human-readable reason.
type FailedHotel struct {
	Hotel  models.Hotel
	Reason string
}

// Tracker accumulates task outcomes per hotel and classifies each
// hotel once its date range is exhausted.
type Tracker struct {
	threshold float64

	mu        sync.Mutex
	open      map[string]*models.HotelOutcome
	finalized map[string]Classification
	failed    []FailedHotel
}

func New(threshold float64) *Tracker {
	return &Tracker{
		threshold: threshold,
		open:      make(map[string]*models.HotelOutcome),
		finalized: make(map[string]Classification),
	}
}

// Record registers one task's terminal outcome. roomsExtracted is the
// number of real room rows the task produced (0 for sentinel rows).
func (t *Tracker) Record(hotel models.Hotel, reason models.ReasonCode, roomsExtracted int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.open[hotel.URL]
	if !ok {
		o = &models.HotelOutcome{
			Hotel:    hotel,
			ByReason: make(map[models.ReasonCode]int),
		}
		t.open[hotel.URL] = o
	}
	o.DatesAttempted++
	o.ByReason[reason]++
	o.RoomsExtracted += roomsExtracted
}

// Finalize classifies a hotel after its worker has finished every date.
// The outcome is immutable afterwards; calling Finalize twice for the
// same hotel returns the original classification.
func (t *Tracker) Finalize(hotel models.Hotel) Classification {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, done := t.finalized[hotel.URL]; done {
		return c
	}

	o, ok := t.open[hotel.URL]
	if !ok {
		// Never attempted at all.
		t.finalized[hotel.URL] = Unprocessed
		t.failed = append(t.failed, FailedHotel{Hotel: hotel, Reason: "never attempted"})
		return Unprocessed
	}

	errors := 0
	for reason, n := range o.ByReason {
		if reason.IsError() {
			errors += n
		}
	}

	c := Healthy
	// SoldOut and NoRoomsFound may be genuine unavailability, so only
	// true errors count, and only when the hotel yielded nothing at all.
	if o.DatesAttempted > 0 && o.RoomsExtracted == 0 &&
		float64(errors)/float64(o.DatesAttempted) >= t.threshold {
		c = RetryableFailure
		t.failed = append(t.failed, FailedHotel{
			Hotel:  hotel,
			Reason: fmt.Sprintf("API errors on %d/%d dates", errors, o.DatesAttempted),
		})
	}

	t.finalized[hotel.URL] = c
	return c
}

// MarkUnprocessed records a hotel whose partition was abandoned before
// any of its dates ran. Distinct from RetryableFailure, but it still
// lands in the export so a follow-up run picks it up.
func (t *Tracker) MarkUnprocessed(hotel models.Hotel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, done := t.finalized[hotel.URL]; done {
		return
	}
	t.finalized[hotel.URL] = Unprocessed
	t.failed = append(t.failed, FailedHotel{Hotel: hotel, Reason: "worker unavailable, never attempted"})
}

// Outcome returns a copy of the accumulated outcome for one hotel.
func (t *Tracker) Outcome(hotel models.Hotel) (models.HotelOutcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.open[hotel.URL]
	if !ok {
		return models.HotelOutcome{}, false
	}
	byReason := make(map[models.ReasonCode]int, len(o.ByReason))
	for k, v := range o.ByReason {
		byReason[k] = v
	}
	return models.HotelOutcome{
		Hotel:          o.Hotel,
		DatesAttempted: o.DatesAttempted,
		ByReason:       byReason,
		RoomsExtracted: o.RoomsExtracted,
	}, true
}

// Failures returns the retry set accumulated so far, in finalization
// order.
func (t *Tracker) Failures() []FailedHotel {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]FailedHotel, len(t.failed))
	copy(out, t.failed)
	return out
}
