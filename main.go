package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agoda-scraper/browser"
	"agoda-scraper/config"
	"agoda-scraper/fingerprint"
	"agoda-scraper/models"
	"agoda-scraper/progress"
	"agoda-scraper/scraper/agoda"
	"agoda-scraper/services"
	"agoda-scraper/storage"
	"agoda-scraper/tracker"
	"agoda-scraper/utils"
)

func main() {
	cfg := config.DefaultConfig()

	flag.StringVar(&cfg.HotelsCSV, "hotels", cfg.HotelsCSV, "CSV file with the hotel list")
	flag.IntVar(&cfg.HotelOffset, "offset", cfg.HotelOffset, "skip this many hotels from the top of the list")
	flag.IntVar(&cfg.HotelLimit, "limit", cfg.HotelLimit, "process at most this many hotels (0 = all)")
	flag.IntVar(&cfg.DaysAhead, "days", cfg.DaysAhead, "number of check-in dates per hotel, starting tomorrow")
	flag.IntVar(&cfg.Guests, "guests", cfg.Guests, "adults per booking query")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel browser contexts")
	flag.IntVar(&cfg.InstanceID, "instance", cfg.InstanceID, "zero-based id of this process in a multi-machine run")
	flag.IntVar(&cfg.InstanceCount, "instances", cfg.InstanceCount, "total processes in a multi-machine run")
	flag.IntVar(&cfg.MaxRetries, "retries", cfg.MaxRetries, "navigation attempts per task before giving up")
	flag.Float64Var(&cfg.FailureThreshold, "failure-threshold", cfg.FailureThreshold, "error-date ratio that flags a hotel for retry")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for result files")
	flag.StringVar(&cfg.FailureCSV, "failures", cfg.FailureCSV, "write retryable hotels to this CSV (empty = skip)")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus listen address, e.g. :9090 (empty = off)")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run Chrome headless")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")
	flag.Parse()

	utils.SetVerbose(cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		utils.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if err := fingerprint.Validate(cfg.InstanceCount, cfg.Workers); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}

	hotels, err := storage.LoadHotels(cfg.HotelsCSV, cfg.HotelOffset, cfg.HotelLimit)
	if err != nil {
		utils.Error("Could not load hotel list: %v", err)
		os.Exit(1)
	}
	if len(hotels) == 0 {
		utils.Warn("Hotel list is empty, nothing to do.")
		os.Exit(0)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		utils.Error("Could not create output dir: %v", err)
		os.Exit(1)
	}

	runID := uuid.NewString()[:8]
	csvPath := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("rooms_%s_%s.csv", time.Now().Format("20060102"), runID))
	if cfg.FailureCSV == "" {
		cfg.FailureCSV = filepath.Join(cfg.OutputDir,
			fmt.Sprintf("failed_hotels_%s.csv", runID))
	}

	csvWriter, err := storage.NewCSVWriter(csvPath)
	if err != nil {
		utils.Error("Could not open output CSV: %v", err)
		os.Exit(1)
	}

	sinks := []storage.RowWriter{csvWriter}
	if cfg.DBHost != "" {
		pg, err := storage.NewPostgresWriter(cfg)
		if err != nil {
			utils.Error("Could not connect to PostgreSQL: %v", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(); err != nil {
			utils.Error("Could not prepare PostgreSQL schema: %v", err)
			os.Exit(1)
		}
		sinks = append(sinks, pg)
		utils.Info("PostgreSQL sink enabled (%s:%d/%s)", cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	collector := services.NewCollector()
	sinks = append(sinks, collector)
	writer := storage.NewMultiWriter(sinks...)

	metrics := progress.NewMetrics()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		go func() {
			utils.Info("Metrics on http://%s/metrics", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				utils.Warn("Metrics server stopped: %v", err)
			}
		}()
	}

	monitor := progress.NewMonitor(len(hotels), metrics)
	trk := tracker.New(cfg.FailureThreshold)
	engine := browser.NewEngine(cfg.Headless)

	startDate := time.Now().AddDate(0, 0, 1)
	printPlan(cfg, len(hotels), startDate, csvPath, runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := agoda.NewOrchestrator(cfg, engine, agoda.DefaultExtractor(), writer, trk, monitor)
	snapshot, runErr := orch.Run(ctx, hotels, startDate)

	if err := writer.Close(); err != nil {
		utils.Warn("Closing sinks: %v", err)
	}

	printSummary(snapshot, csvPath)
	services.PrintReport(services.GenerateReport(collector.Rows()))
	if runErr != nil {
		utils.Warn("Run interrupted: %v", runErr)
		os.Exit(130)
	}
}

func printPlan(cfg *config.Config, hotelCount int, startDate time.Time, csvPath, runID string) {
	utils.Section("Run Plan")
	utils.Info("Run ID        : %s", runID)
	utils.Info("Hotels        : %d (offset %d)", hotelCount, cfg.HotelOffset)
	utils.Info("Dates         : %d, from %s", cfg.DaysAhead, startDate.Format("2006-01-02"))
	utils.Info("Workers       : %d (instance %d of %d)", cfg.Workers, cfg.InstanceID+1, cfg.InstanceCount)
	utils.Info("Tasks         : %d", hotelCount*cfg.DaysAhead)
	utils.Info("Output        : %s", csvPath)
}

func printSummary(s models.ProgressSnapshot, csvPath string) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║                SCRAPE COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Printf( "║  Hotels done    : %-26d ║\n", s.HotelsDone)
	fmt.Printf( "║  Rooms extracted: %-26d ║\n", s.RoomsExtracted)
	fmt.Printf( "║  Task errors    : %-26d ║\n", s.Errors)
	fmt.Printf( "║  Failed hotels  : %-26d ║\n", s.FailedHotels)
	fmt.Printf( "║  Elapsed        : %-26s ║\n", s.Elapsed.Round(time.Second))
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()
	utils.Success("Results saved to %s", csvPath)
}
