package config

import (
	"fmt"
	"time"

	"agoda-scraper/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	// Workload
	HotelsCSV   string
	HotelOffset int
	HotelLimit  int
	DaysAhead   int
	Guests      int
	Rooms       int

	// Concurrency. Workers is the per-instance browser count;
	// InstanceID/InstanceCount identify this process in a distributed
	// deployment so fingerprints never collide across machines.
	Workers       int
	InstanceID    int
	InstanceCount int

	// Navigation
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration

	// Pacing
	DateDelayMin      time.Duration
	DateDelayMax      time.Duration
	HotelDelayMin     time.Duration
	HotelDelayMax     time.Duration
	SessionBreakEvery int
	SessionBreakMin   time.Duration
	SessionBreakMax   time.Duration
	RatePerSecond     float64

	// Data-readiness wait
	FastPollInterval time.Duration
	FastPollWindow   time.Duration
	SlowPollInterval time.Duration
	DataWaitCeiling  time.Duration
	ScrollNudgePx    int

	// Failure classification
	FailureThreshold float64

	Headless bool
	Verbose  bool

	// Output
	OutputDir   string
	FailureCSV  string
	MetricsAddr string

	// PostgreSQL sink, enabled when DBHost is non-empty
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func DefaultConfig() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		HotelsCSV:   utils.EnvOrDefault("HOTELS_CSV", "input/hotels.csv"),
		HotelOffset: 0,
		HotelLimit:  0,
		DaysAhead:   30,
		Guests:      2,
		Rooms:       1,

		Workers:       utils.EnvIntOrDefault("SCRAPER_WORKERS", 5),
		InstanceID:    utils.EnvIntOrDefault("SCRAPER_INSTANCE_ID", 0),
		InstanceCount: utils.EnvIntOrDefault("SCRAPER_INSTANCE_COUNT", 1),

		RequestTimeout: 60 * time.Second,
		MaxRetries:     3,
		RetryBackoff:   5 * time.Second,

		DateDelayMin:      2 * time.Second,
		DateDelayMax:      4 * time.Second,
		HotelDelayMin:     8 * time.Second,
		HotelDelayMax:     14 * time.Second,
		SessionBreakEvery: 12,
		SessionBreakMin:   45 * time.Second,
		SessionBreakMax:   90 * time.Second,
		RatePerSecond:     utils.EnvFloatOrDefault("SCRAPER_RATE", 2.0),

		FastPollInterval: 500 * time.Millisecond,
		FastPollWindow:   8 * time.Second,
		SlowPollInterval: 2 * time.Second,
		DataWaitCeiling:  30 * time.Second,
		ScrollNudgePx:    500,

		FailureThreshold: 0.8,

		Headless: true,
		Verbose:  false,

		OutputDir:   utils.EnvOrDefault("SCRAPER_OUTPUT_DIR", "output"),
		FailureCSV:  "",
		MetricsAddr: utils.EnvOrDefault("SCRAPER_METRICS_ADDR", ""),

		DBHost:     utils.EnvOrDefault("DB_HOST", ""),
		DBPort:     utils.EnvIntOrDefault("DB_PORT", 5433),
		DBUser:     utils.EnvOrDefault("DB_USER", "postgres"),
		DBPassword: utils.EnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:     utils.EnvOrDefault("DB_NAME", "agoda_scraper"),
		DBSSLMode:  utils.EnvOrDefault("DB_SSLMODE", "disable"),
	}
}

// Validate rejects incoherent settings before any browser starts.
// Fingerprint capacity is checked separately at startup against the
// identity pool, since the pool owns its own size.
func (c *Config) Validate() error {
	if c.HotelsCSV == "" {
		return fmt.Errorf("hotels csv path cannot be empty")
	}
	if c.DaysAhead <= 0 {
		return fmt.Errorf("days ahead must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.InstanceID < 0 || c.InstanceCount <= 0 || c.InstanceID >= c.InstanceCount {
		return fmt.Errorf("instance id %d out of range for %d instances", c.InstanceID, c.InstanceCount)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.DateDelayMin > c.DateDelayMax {
		return fmt.Errorf("date delay min (%s) exceeds max (%s)", c.DateDelayMin, c.DateDelayMax)
	}
	if c.HotelDelayMin > c.HotelDelayMax {
		return fmt.Errorf("hotel delay min (%s) exceeds max (%s)", c.HotelDelayMin, c.HotelDelayMax)
	}
	if c.SessionBreakEvery <= 0 {
		return fmt.Errorf("session break cadence must be positive")
	}
	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		return fmt.Errorf("failure threshold must be in (0, 1]")
	}
	if c.DataWaitCeiling < c.FastPollWindow {
		return fmt.Errorf("data wait ceiling (%s) below fast poll window (%s)", c.DataWaitCeiling, c.FastPollWindow)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	return nil
}
