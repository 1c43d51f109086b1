package pacing

import (
	"context"
	"testing"
	"time"

	"agoda-scraper/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DateDelayMin = 10 * time.Millisecond
	cfg.DateDelayMax = 20 * time.Millisecond
	cfg.HotelDelayMin = 30 * time.Millisecond
	cfg.HotelDelayMax = 50 * time.Millisecond
	cfg.SessionBreakEvery = 3
	cfg.SessionBreakMin = 100 * time.Millisecond
	cfg.SessionBreakMax = 200 * time.Millisecond
	cfg.RatePerSecond = 0
	return cfg
}

func TestDelaysStayInRange(t *testing.T) {
	p := NewPolicy(testConfig())

	for i := 0; i < 200; i++ {
		d := p.DelayBeforeDate()
		// Upper bound includes the 5% jitter on top of the drawn value.
		if d < 10*time.Millisecond || d > 21*time.Millisecond {
			t.Fatalf("date delay %v outside [10ms, 21ms]", d)
		}
		h := p.DelayBeforeHotel()
		if h < 30*time.Millisecond || h > 53*time.Millisecond {
			t.Fatalf("hotel delay %v outside [30ms, 53ms]", h)
		}
	}
}

func TestDelaysVary(t *testing.T) {
	p := NewPolicy(testConfig())

	first := p.DelayBeforeHotel()
	for i := 0; i < 50; i++ {
		if p.DelayBeforeHotel() != first {
			return
		}
	}
	t.Fatal("50 consecutive draws identical, delays are not randomized")
}

func TestSessionBreakCadence(t *testing.T) {
	p := NewPolicy(testConfig())

	for completed := 0; completed <= 10; completed++ {
		d, ok := p.SessionBreak(completed)
		want := completed != 0 && completed%3 == 0
		if ok != want {
			t.Fatalf("SessionBreak(%d) fired=%v, want %v", completed, ok, want)
		}
		if ok && (d < 100*time.Millisecond || d > 210*time.Millisecond) {
			t.Fatalf("break duration %v outside [100ms, 210ms]", d)
		}
	}
}

func TestWaitWithoutLimiter(t *testing.T) {
	p := NewPolicy(testConfig())
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait with rate disabled: %v", err)
	}
}

func TestWaitThrottles(t *testing.T) {
	cfg := testConfig()
	cfg.RatePerSecond = 50 // 20ms between requests
	p := NewPolicy(cfg)

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// Burst 1, so three of the four calls must wait ~20ms each.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("4 waits at 50/s took only %v", elapsed)
	}
}

func TestSleepCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatal("Sleep ignored cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Sleep did not return promptly on cancellation")
	}
}
