// Package fingerprint assigns each browser worker a deterministic,
// collision-free synthetic identity. The pools are immutable after
// init; Assign is a pure function of the worker coordinates, so a
// restarted instance gets the same identities back.
package fingerprint

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrPoolCapacity is returned by Validate when the requested
// concurrency cannot be given distinct identities.
var ErrPoolCapacity = errors.New("identity pool capacity exceeded")

// Capacity is the maximum supported total concurrency:
// instances × workers-per-instance must not exceed it. The geo jitter
// table is sized exactly to Capacity so every coordinate within it
// maps to a distinct jitter, which keeps the full tuples distinct
// even when the smaller pools wrap.
const Capacity = 64

// Viewport is a synthetic window size.
type Viewport struct {
	Width  int
	Height int
}

// GeoJitter offsets the reported geolocation around the target city
// so workers do not all sit on the same coordinate.
type GeoJitter struct {
	LatOffset float64
	LonOffset float64
}

// Identity is the fingerprint tuple one browser context presents for
// its entire lifetime.
type Identity struct {
	InstanceID int
	WorkerSlot int
	UserAgent  string
	Viewport   Viewport
	Locale     string
	Timezone   string
	Geo        GeoJitter
}

// Real browser strings rotated per worker. Agoda inspects the
// User-Agent, so each worker presents a different real one.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/605.1.15",
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
	{1680, 1050},
	{2560, 1440},
	{1280, 720},
	{1600, 900},
}

type localeTZ struct {
	locale   string
	timezone string
}

var locales = []localeTZ{
	{"en-US", "America/New_York"},
	{"en-US", "America/Los_Angeles"},
	{"en-GB", "Europe/London"},
	{"en-IN", "Asia/Kolkata"},
	{"en-AU", "Australia/Sydney"},
}

// geoJitters has exactly Capacity entries, generated once from a fixed
// seed so assignment stays deterministic across restarts.
var geoJitters = func() []GeoJitter {
	rng := rand.New(rand.NewSource(7919))
	out := make([]GeoJitter, Capacity)
	for i := range out {
		out[i] = GeoJitter{
			LatOffset: rng.Float64() - 0.5,
			LonOffset: rng.Float64() - 0.5,
		}
	}
	return out
}()

// Distinct prime strides per pool keep the four components from
// co-varying identically across adjacent worker indexes, which would
// make the fingerprints cluster.
const (
	uaStride       = 7
	viewportStride = 5
	localeStride   = 3
)

// Validate fails loudly when the requested concurrency does not fit
// in the identity table. Call this at startup, before any browser
// launches — exceeding capacity is a configuration error, not a
// runtime fault.
func Validate(instanceCount, workersPerInstance int) error {
	if instanceCount <= 0 || workersPerInstance <= 0 {
		return fmt.Errorf("fingerprint: instance count and worker count must be positive")
	}
	total := instanceCount * workersPerInstance
	if total > Capacity {
		return fmt.Errorf("fingerprint: %d instances x %d workers = %d exceeds capacity %d: %w",
			instanceCount, workersPerInstance, total, Capacity, ErrPoolCapacity)
	}
	return nil
}

// Assign returns the identity for one worker coordinate. Deterministic
// and side-effect-free: the same (instanceID, workerSlot,
// workersPerInstance) always yields the same identity.
func Assign(instanceID, workerSlot, workersPerInstance int) Identity {
	base := instanceID*workersPerInstance + workerSlot
	lt := locales[(base*localeStride)%len(locales)]

	return Identity{
		InstanceID: instanceID,
		WorkerSlot: workerSlot,
		UserAgent:  userAgents[(base*uaStride)%len(userAgents)],
		Viewport:   viewports[(base*viewportStride)%len(viewports)],
		Locale:     lt.locale,
		Timezone:   lt.timezone,
		Geo:        geoJitters[base%Capacity],
	}
}
