package agoda

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agoda-scraper/models"
	"agoda-scraper/progress"
	"agoda-scraper/storage"
	"agoda-scraper/tracker"
)

func makeHotels(n int) []models.Hotel {
	hotels := make([]models.Hotel, n)
	for i := range hotels {
		hotels[i] = models.Hotel{
			Name: fmt.Sprintf("Hotel %d", i),
			URL:  fmt.Sprintf("https://www.agoda.com/hotel-%d", i),
		}
	}
	return hotels
}

func TestPartition(t *testing.T) {
	hotels := makeHotels(5)

	blocks := Partition(hotels, 3)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if len(blocks[0]) != 2 || len(blocks[1]) != 2 || len(blocks[2]) != 1 {
		t.Fatalf("block sizes %d/%d/%d, want 2/2/1", len(blocks[0]), len(blocks[1]), len(blocks[2]))
	}

	// Contiguous and complete: concatenating the blocks restores the list.
	var flat []models.Hotel
	for _, b := range blocks {
		flat = append(flat, b...)
	}
	for i := range hotels {
		if flat[i].URL != hotels[i].URL {
			t.Fatalf("position %d: got %s, want %s", i, flat[i].URL, hotels[i].URL)
		}
	}

	// Same input, same partition.
	again := Partition(hotels, 3)
	for i := range blocks {
		if len(again[i]) != len(blocks[i]) {
			t.Fatal("partition is not deterministic")
		}
	}
}

func TestPartitionMoreWorkersThanHotels(t *testing.T) {
	blocks := Partition(makeHotels(2), 5)
	nonEmpty := 0
	for _, b := range blocks {
		if len(b) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty != 2 {
		t.Fatalf("%d non-empty blocks, want 2", nonEmpty)
	}
}

func TestOrchestratorCoversEveryTaskExactlyOnce(t *testing.T) {
	hotels := makeHotels(5)
	cfg := fastConfig()
	cfg.FailureCSV = filepath.Join(t.TempDir(), "failed.csv")

	// hotel-0 has rooms on the first date, everything else is empty.
	engine := &stubBrowser{respond: func(url string) (*stubPage, error) {
		if strings.Contains(url, "hotel-0") && strings.Contains(url, "checkIn=2026-09-01") {
			return &stubPage{ready: true, html: "rooms:1"}, nil
		}
		return &stubPage{ready: true}, nil
	}}

	writer := &memWriter{}
	trk := tracker.New(cfg.FailureThreshold)
	monitor := progress.NewMonitor(len(hotels), nil)

	orch := NewOrchestrator(cfg, engine, stubExtractor{}, writer, trk, monitor)
	snapshot, err := orch.Run(context.Background(), hotels, testStart)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 5 hotels × 2 dates, each visited exactly once.
	visits := map[string]int{}
	for _, u := range engine.visited() {
		visits[u]++
	}
	if len(visits) != 10 {
		t.Fatalf("got %d distinct task URLs, want 10", len(visits))
	}
	for u, n := range visits {
		if n != 1 {
			t.Fatalf("task %s visited %d times", u, n)
		}
	}

	rows := writer.all()
	if len(rows) != 10 {
		t.Fatalf("got %d rows, want 10 (1 room + 9 sentinels)", len(rows))
	}
	success, sentinels := 0, 0
	for _, r := range rows {
		if r.Reason == models.ReasonSuccess {
			success++
		} else if r.Reason == models.ReasonNoRoomsFound {
			sentinels++
		}
	}
	if success != 1 || sentinels != 9 {
		t.Fatalf("%d success + %d sentinels, want 1 + 9", success, sentinels)
	}

	if snapshot.HotelsDone != 5 || snapshot.RoomsExtracted != 1 || snapshot.FailedHotels != 0 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	if n := len(trk.Failures()); n != 0 {
		t.Fatalf("healthy run produced %d failures", n)
	}
}

func TestOrchestratorSurvivesWorkerStartupFailure(t *testing.T) {
	hotels := makeHotels(5)
	cfg := fastConfig()
	cfg.FailureCSV = filepath.Join(t.TempDir(), "failed.csv")

	// Worker slot 0 cannot launch a browser; its block must be
	// surrendered without stopping the rest.
	engine := &stubBrowser{failSlots: map[int]bool{0: true}}

	writer := &memWriter{}
	trk := tracker.New(cfg.FailureThreshold)
	monitor := progress.NewMonitor(len(hotels), nil)

	orch := NewOrchestrator(cfg, engine, stubExtractor{}, writer, trk, monitor)
	snapshot, err := orch.Run(context.Background(), hotels, testStart)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Slot 0 owns the first block of 2 hotels.
	for _, u := range engine.visited() {
		if strings.Contains(u, "hotel-0?") || strings.Contains(u, "hotel-1?") {
			t.Fatalf("dead worker's hotel was visited: %s", u)
		}
	}

	failures := trk.Failures()
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want the 2 unprocessed hotels", len(failures))
	}
	for _, f := range failures {
		if f.Reason != "worker unavailable, never attempted" {
			t.Fatalf("unexpected reason %q", f.Reason)
		}
	}

	// All hotels accounted for, 3 processed + 2 surrendered.
	if snapshot.HotelsDone != 5 || snapshot.FailedHotels != 2 {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	// The export must be reloadable as the next run's input.
	reloaded, err := storage.LoadHotels(cfg.FailureCSV, 0, 0)
	if err != nil {
		t.Fatalf("reload failure export: %v", err)
	}
	if len(reloaded) != 2 {
		t.Fatalf("export holds %d hotels, want 2", len(reloaded))
	}
}

func TestOrchestratorRateLimitIsPoolWide(t *testing.T) {
	hotels := makeHotels(3)
	cfg := fastConfig()
	cfg.DaysAhead = 1
	cfg.FailureCSV = ""
	cfg.RatePerSecond = 1 // burst 1: navigations 2 and 3 must each wait ~1s

	engine := &stubBrowser{}
	writer := &memWriter{}
	trk := tracker.New(cfg.FailureThreshold)
	monitor := progress.NewMonitor(len(hotels), nil)

	orch := NewOrchestrator(cfg, engine, stubExtractor{}, writer, trk, monitor)
	start := time.Now()
	if _, err := orch.Run(context.Background(), hotels, testStart); err != nil {
		t.Fatalf("Run: %v", err)
	}
	elapsed := time.Since(start)

	if n := len(engine.visited()); n != 3 {
		t.Fatalf("got %d navigations, want 3", n)
	}
	// Three workers sharing one limiter cannot all be admitted at
	// once; independent per-worker limiters would finish instantly.
	if elapsed < 1500*time.Millisecond {
		t.Fatalf("3 navigations admitted in %v, want >= ~2s at 1 req/s", elapsed)
	}
}

func TestOrchestratorCancellation(t *testing.T) {
	hotels := makeHotels(4)
	cfg := fastConfig()
	cfg.FailureCSV = ""

	engine := &stubBrowser{}
	writer := &memWriter{}
	trk := tracker.New(cfg.FailureThreshold)
	monitor := progress.NewMonitor(len(hotels), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(cfg, engine, stubExtractor{}, writer, trk, monitor)
	_, err := orch.Run(ctx, hotels, testStart)
	if err == nil {
		t.Fatal("cancelled run reported no error")
	}

	// Nothing started, nothing half-written.
	for _, r := range writer.all() {
		if r.RoomType == "" {
			t.Fatalf("truncated row: %+v", r)
		}
	}
}
