package agoda

import (
	"context"
	"fmt"
	"time"

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

// roomReadyJS is the data-readiness predicate: true once any element
// of the room grid has rendered.
const roomReadyJS = `(() => !!document.querySelector(
	'[data-ppapi="room-price"], [data-selenium="room-panel"], [data-selenium="room-name"],' +
	' [data-element-name="room-item"], .MasterRoom, #roomsAndRates'
))()`

// Worker owns one browser context for its lifetime and consumes its
// assigned hotels sequentially, one date at a time. Workers run in
// parallel with each other but never share a context.
type Worker struct {
	slot     int
	identity fingerprint.Identity
	cfg      *config.Config

	engine    browser.Browser
	extractor Extractor
	pace      *pacing.Policy
	writer    storage.RowWriter
	tracker   *tracker.Tracker
	monitor   *progress.Monitor

	hotelsDone   int
	roomsScraped int
	taskErrors   int
}

func NewWorker(slot int, identity fingerprint.Identity, cfg *config.Config,
	engine browser.Browser, extractor Extractor, pace *pacing.Policy,
	writer storage.RowWriter, trk *tracker.Tracker, monitor *progress.Monitor) *Worker {
	return &Worker{
		slot:      slot,
		identity:  identity,
		cfg:       cfg,
		engine:    engine,
		extractor: extractor,
		pace:      pace,
		writer:    writer,
		tracker:   trk,
		monitor:   monitor,
	}
}

// Run processes the worker's partition. It returns an error only when
// the browser context cannot be created at all — in that case none of
// the partition was attempted and the caller marks it unprocessed.
// Everything after that point is recovered into task outcomes.
func (w *Worker) Run(ctx context.Context, hotels []models.Hotel, startDate time.Time) error {
	bctx, err := w.engine.OpenContext(ctx, w.identity)
	if err != nil {
		return fmt.Errorf("worker %d: open browser context: %w", w.slot, err)
	}
	defer bctx.Close()

	utils.Worker(w.slot, "Started | %d hotels | ua=%.45s…", len(hotels), w.identity.UserAgent)

	for i, hotel := range hotels {
		if ctx.Err() != nil {
			utils.Worker(w.slot, "Stop signal received, %d hotels left unstarted", len(hotels)-i)
			break
		}

		if err := pacing.Sleep(ctx, w.pace.DelayBeforeHotel()); err != nil {
			break
		}

		utils.Worker(w.slot, "[%d/%d] %s", i+1, len(hotels), hotel.Name)
		w.scrapeHotel(ctx, bctx, hotel, startDate)

		if c := w.tracker.Finalize(hotel); c == tracker.RetryableFailure {
			w.monitor.HotelFailed()
			utils.Warn("[browser %d] %s classified retryable", w.slot, hotel.Name)
		}
		w.hotelsDone++
		w.monitor.HotelDone()

		if pause, ok := w.pace.SessionBreak(w.hotelsDone); ok {
			utils.Worker(w.slot, "Session break for %v after %d hotels", pause.Round(time.Second), w.hotelsDone)
			if err := pacing.Sleep(ctx, pause); err != nil {
				// Cancelled during the break: the loop header exits.
				continue
			}
		}
	}

	utils.Worker(w.slot, "Shutdown | hotels: %d, rooms: %d, errors: %d",
		w.hotelsDone, w.roomsScraped, w.taskErrors)
	return nil
}

// scrapeHotel runs every date for one hotel, strictly sequentially —
// date N+1 never starts before date N's terminal state is written.
func (w *Worker) scrapeHotel(ctx context.Context, bctx browser.Context, hotel models.Hotel, startDate time.Time) {
	for day := 0; day < w.cfg.DaysAhead; day++ {
		if ctx.Err() != nil {
			return
		}
		if day > 0 {
			if err := pacing.Sleep(ctx, w.pace.DelayBeforeDate()); err != nil {
				return
			}
		}

		task := models.ScrapeTask{Hotel: hotel, CheckIn: startDate.AddDate(0, 0, day)}
		w.processTask(ctx, bctx, task)
	}
}

// processTask drives one task through
// Navigating → AwaitingData → Extracting and writes its terminal
// outcome. A task is the atomic unit of cancellation: once started it
// runs to its terminal state even if the global stop signal arrives,
// so no partial rows are ever written.
func (w *Worker) processTask(ctx context.Context, bctx browser.Context, task models.ScrapeTask) {
	start := time.Now()
	taskCtx := context.WithoutCancel(ctx)

	_ = w.pace.Wait(taskCtx)

	pageURL, err := BuildHotelURL(task.Hotel.URL, task.CheckIn, w.cfg.Guests, w.cfg.Rooms)
	if err != nil {
		utils.Error("[browser %d] bad hotel URL %q: %v", w.slot, task.Hotel.URL, err)
		w.finishTask(task, models.ReasonAPIError, nil, start)
		return
	}

	// Navigating: transient failures are retried with backoff; the
	// combinator owns the attempt bound.
	var pg browser.Page
	err = utils.Retry(taskCtx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func() error {
		var nerr error
		pg, nerr = bctx.Navigate(taskCtx, pageURL, w.cfg.RequestTimeout)
		return nerr
	})
	if err != nil {
		utils.Error("[browser %d] navigation exhausted for %s on %s: %v",
			w.slot, task.Hotel.Name, task.CheckIn.Format("2006-01-02"), err)
		w.finishTask(task, models.ReasonMaxRetriesExceeded, nil, start)
		return
	}

	// AwaitingData: a timeout here is treated as a legitimate
	// negative, not an error — the page may genuinely have no rooms.
	if !w.awaitData(taskCtx, pg) {
		w.finishTask(task, models.ReasonNoRoomsFound, nil, start)
		return
	}

	// Extracting
	html, err := pg.Content(taskCtx)
	if err != nil {
		utils.Warn("[browser %d] could not read page for %s: %v", w.slot, task.Hotel.Name, err)
		w.finishTask(task, models.ReasonAPIError, nil, start)
		return
	}

	rooms, err := w.extractor.Extract(html, pg.Payloads(), task.Hotel, task.CheckIn)
	switch {
	case err == ErrSoldOut:
		w.finishTask(task, models.ReasonSoldOut, nil, start)
	case err != nil:
		utils.Warn("[browser %d] extraction failed for %s on %s: %v",
			w.slot, task.Hotel.Name, task.CheckIn.Format("2006-01-02"), err)
		w.finishTask(task, models.ReasonAPIError, nil, start)
	case len(rooms) == 0:
		w.finishTask(task, models.ReasonNoRoomsFound, nil, start)
	default:
		w.finishTask(task, models.ReasonSuccess, rooms, start)
	}
}

// awaitData polls for room content with a progressive strategy: a fast
// window for typical responses, a slower window as a safety net, then
// one scroll nudge to trigger lazy-loaded content and a final check.
// Bounded by the overall ceiling — never waits indefinitely.
func (w *Worker) awaitData(ctx context.Context, pg browser.Page) bool {
	ready, err := pg.WaitForCondition(ctx, roomReadyJS, w.cfg.FastPollInterval, w.cfg.FastPollWindow)
	if err != nil || ready {
		return ready
	}

	slowBudget := w.cfg.DataWaitCeiling - w.cfg.FastPollWindow
	ready, err = pg.WaitForCondition(ctx, roomReadyJS, w.cfg.SlowPollInterval, slowBudget/2)
	if err != nil || ready {
		return ready
	}

	if err := pg.Scroll(ctx, w.cfg.ScrollNudgePx); err != nil {
		return false
	}

	ready, _ = pg.WaitForCondition(ctx, roomReadyJS, w.cfg.SlowPollInterval, slowBudget/2)
	return ready
}

// finishTask is the single terminal transition: rows are written
// exactly once here, then the tracker and counters are updated. A sink
// failure downgrades the outcome to NetworkError so lost data is
// reflected in the failure classification instead of vanishing.
func (w *Worker) finishTask(task models.ScrapeTask, reason models.ReasonCode, rooms []models.RoomRecord, start time.Time) {
	written := 0

	if reason == models.ReasonSuccess {
		for _, r := range rooms {
			if err := w.writer.Append(r); err != nil {
				utils.Error("[browser %d] write failed for %s: %v", w.slot, task.Hotel.Name, err)
				reason = models.ReasonNetworkError
				break
			}
			written++
		}
	} else {
		rec := models.SentinelRecord(task.Hotel, task.CheckIn, reason)
		if err := w.writer.Append(rec); err != nil {
			utils.Error("[browser %d] write failed for %s: %v", w.slot, task.Hotel.Name, err)
			reason = models.ReasonNetworkError
		}
	}

	w.tracker.Record(task.Hotel, reason, written)
	w.roomsScraped += written
	w.monitor.RoomsExtracted(written)
	if reason.IsError() {
		w.taskErrors++
		w.monitor.TaskError(reason)
	}
	w.monitor.ObserveTask(time.Since(start))
}
