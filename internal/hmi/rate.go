package hmi

import "time"

// RateConfig controls encoder acceleration inside value editors.
//
// Steps arriving in the same direction within Window are counted and
// converted to steps per second; crossing a threshold multiplies the
// per-detent increment.
type RateConfig struct {
	Window       time.Duration
	Threshold5   float64 // steps/sec for x5
	Threshold10  float64 // steps/sec for x10
	Threshold100 float64 // steps/sec for x100
}

// DefaultRateConfig mirrors the stock DWIN encoder tuning.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		Window:       200 * time.Millisecond,
		Threshold5:   30,
		Threshold10:  80,
		Threshold100: 130,
	}
}

// encoderRate tracks recent detents for velocity detection.
//
// Not thread-safe; owned by the controller loop.
type encoderRate struct {
	cfg     RateConfig
	enabled bool
	recent  []rateStep
}

type rateStep struct {
	at        time.Time
	direction int
}

func newEncoderRate(cfg RateConfig) *encoderRate {
	if cfg.Window <= 0 {
		cfg = DefaultRateConfig()
	}
	return &encoderRate{cfg: cfg, recent: make([]rateStep, 0, 16)}
}

// enable switches acceleration on or off. Switching clears the history so a
// fast spin in a menu does not leak into the next editor.
func (r *encoderRate) enable(on bool) {
	r.enabled = on
	r.recent = r.recent[:0]
}

// step records one detent and returns the increment to apply.
func (r *encoderRate) step(direction int, at time.Time) int {
	if !r.enabled {
		return 1
	}
	cutoff := at.Add(-r.cfg.Window)

	filtered := r.recent[:0]
	for _, s := range r.recent {
		if s.at.After(cutoff) {
			filtered = append(filtered, s)
		}
	}
	filtered = append(filtered, rateStep{at: at, direction: direction})
	r.recent = filtered

	sameDir := 0
	for _, s := range filtered {
		if s.direction == direction {
			sameDir++
		}
	}
	if sameDir < 2 {
		return 1
	}

	perSec := float64(sameDir) / r.cfg.Window.Seconds()
	switch {
	case r.cfg.Threshold100 > 0 && perSec >= r.cfg.Threshold100:
		return 100
	case r.cfg.Threshold10 > 0 && perSec >= r.cfg.Threshold10:
		return 10
	case r.cfg.Threshold5 > 0 && perSec >= r.cfg.Threshold5:
		return 5
	default:
		return 1
	}
}
