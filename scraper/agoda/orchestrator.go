package agoda

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"agoda-scraper/browser"
	"agoda-scraper/config"
	"agoda-scraper/fingerprint"
	"agoda-scraper/models"
	"agoda-scraper/pacing"
	"agoda-scraper/progress"
	"agoda-scraper/storage"
	"agoda-scraper/tracker"
	"agoda-scraper/utils"
)

// Orchestrator partitions the hotel list across workers, runs them to
// completion and collects the run's outcome.
type Orchestrator struct {
	cfg       *config.Config
	engine    browser.Browser
	extractor Extractor
	writer    storage.RowWriter
	tracker   *tracker.Tracker
	monitor   *progress.Monitor
}

func NewOrchestrator(cfg *config.Config, engine browser.Browser, extractor Extractor,
	writer storage.RowWriter, trk *tracker.Tracker, monitor *progress.Monitor) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		engine:    engine,
		extractor: extractor,
		writer:    writer,
		tracker:   trk,
		monitor:   monitor,
	}
}

// Partition splits hotels into contiguous blocks, one per worker. The
// first len(hotels)%workers blocks get one extra hotel. Blocks for
// worker slots beyond the hotel count come back empty.
func Partition(hotels []models.Hotel, workers int) [][]models.Hotel {
	blocks := make([][]models.Hotel, workers)
	if workers <= 0 {
		return blocks
	}
	base := len(hotels) / workers
	extra := len(hotels) % workers
	idx := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < extra {
			size++
		}
		blocks[i] = hotels[idx : idx+size]
		idx += size
	}
	return blocks
}

// Run drives the whole scrape: one goroutine per worker slot, each
// with its own fingerprint and browser context. A worker that cannot
// start surrenders its partition as unprocessed without taking the
// siblings down. Returns the final progress snapshot.
func (o *Orchestrator) Run(ctx context.Context, hotels []models.Hotel, startDate time.Time) (models.ProgressSnapshot, error) {
	workers := o.cfg.Workers
	if workers > len(hotels) {
		workers = len(hotels)
	}

	blocks := Partition(hotels, workers)

	utils.Section("Scraping")
	utils.Info("Launching %d workers over %d hotels, %d dates each",
		workers, len(hotels), o.cfg.DaysAhead)

	reportCtx, stopReport := context.WithCancel(ctx)
	defer stopReport()
	go o.monitor.Report(reportCtx, 30*time.Second)

	// One policy for the whole pool: the rate limiter inside it caps
	// the combined request rate, so it must be shared, not per worker.
	pace := pacing.NewPolicy(o.cfg)

	g, gctx := errgroup.WithContext(ctx)
	for slot := 0; slot < workers; slot++ {
		slot := slot
		block := blocks[slot]
		if len(block) == 0 {
			continue
		}
		g.Go(func() error {
			identity := fingerprint.Assign(o.cfg.InstanceID, slot, o.cfg.Workers)
			w := NewWorker(slot, identity, o.cfg, o.engine, o.extractor, pace,
				o.writer, o.tracker, o.monitor)
			if err := w.Run(gctx, block, startDate); err != nil {
				// The partition was never attempted. Record that and
				// keep the other workers alive.
				utils.Error("%v", err)
				for _, h := range block {
					o.tracker.MarkUnprocessed(h)
					o.monitor.HotelDone()
					o.monitor.HotelFailed()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if o.cfg.FailureCSV != "" {
		failures := o.tracker.Failures()
		if len(failures) > 0 {
			if err := storage.ExportFailures(o.cfg.FailureCSV, failures); err != nil {
				utils.Error("Failure export: %v", err)
			} else {
				utils.Warn("%d hotels flagged for retry -> %s", len(failures), o.cfg.FailureCSV)
			}
		}
	}

	return o.monitor.Snapshot(), ctx.Err()
}
