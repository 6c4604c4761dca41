// Package rotation decides what the public TV display shows and for how long.
//
// The Engine owns two independent cycles and a decorative clock:
//
//   - rates/media: the rates view is shown for the configured rates duration, then the
//     current media item for its own duration, then rates again with the media index
//     advanced round-robin. Disabled when media is turned off or no media is active.
//   - promo: while the rates view is on screen, the promo slideshow advances after each
//     image's own duration. Paused while media is shown. No cycling with fewer than two
//     images.
//
// All timing goes through Advance, which makes the engine deterministic under test. Runner
// adapts it to wall-clock tickers and polls the data sources.
package rotation

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aouyang1/ratedisplay/store"
)

type Mode string

const (
	ModeNotReady Mode = "not-ready"
	ModeRates    Mode = "rates"
	ModeMedia    Mode = "media"
)

// Directive is what the presentation layer should render right now.
type Directive struct {
	Mode  Mode      `json:"mode"`
	Clock time.Time `json:"clock"`

	Rates      *store.RateSnapshot    `json:"rates,omitempty"`
	Settings   *store.DisplaySettings `json:"settings,omitempty"`
	Banner     *store.BannerSettings  `json:"banner,omitempty"`
	Promo      *store.PromoImage      `json:"promo,omitempty"`
	PromoIndex int                    `json:"promo_index"`
	PromoCount int                    `json:"promo_count"`
	Transition store.TransitionEffect `json:"transition,omitempty"`

	Media      *store.MediaItem `json:"media,omitempty"`
	MediaIndex int              `json:"media_index"`
}

type Engine struct {
	mu sync.Mutex

	rates    *store.RateSnapshot
	settings store.DisplaySettings
	media    []store.MediaItem
	promos   []store.PromoImage
	banner   *store.BannerSettings

	showingRates bool
	mediaIndex   int
	promoIndex   int
	clock        time.Time

	// remaining dwell of the in-flight wait for each cycle, zero when disarmed
	cycleRemaining time.Duration
	promoRemaining time.Duration

	metrics *Metrics
}

// NewEngine returns an engine in the not-ready state. metrics may be nil.
func NewEngine(metrics *Metrics) *Engine {
	e := &Engine{
		settings:     store.DefaultDisplaySettings(),
		showingRates: true,
		metrics:      metrics,
	}
	e.metrics.setMode(ModeNotReady)
	return e
}

// secondsOr converts a stored duration, using fallback when unset and capping it at a day
// so the conversion cannot overflow.
func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	seconds = min(seconds, store.MaxDurationSeconds)
	return time.Duration(seconds) * time.Second
}

func (e *Engine) ready() bool {
	return e.rates != nil
}

func (e *Engine) mediaCycleEnabled() bool {
	return e.settings.ShowMedia && len(e.media) > 0
}

func (e *Engine) ratesDwell() time.Duration {
	return secondsOr(e.settings.RatesDisplayDuration, store.DefaultRatesDisplaySeconds)
}

func (e *Engine) mediaDwell() time.Duration {
	return secondsOr(e.media[e.mediaIndex].DurationSeconds, store.DefaultMediaSeconds)
}

func (e *Engine) promoDwell() time.Duration {
	return secondsOr(e.promos[e.promoIndex].DurationSeconds, store.DefaultPromoSeconds)
}

func (e *Engine) mode() Mode {
	switch {
	case !e.ready():
		return ModeNotReady
	case e.showingRates:
		return ModeRates
	default:
		return ModeMedia
	}
}

// correctIndexes snaps indexes that fell outside a shrunken collection back to 0.
func (e *Engine) correctIndexes() {
	if e.mediaIndex >= len(e.media) && e.mediaIndex != 0 {
		slog.Debug("media index out of range, resetting", "index", e.mediaIndex, "count", len(e.media))
		e.mediaIndex = 0
		e.metrics.correction("media")
	}
	if e.promoIndex >= len(e.promos) && e.promoIndex != 0 {
		slog.Debug("promo index out of range, resetting", "index", e.promoIndex, "count", len(e.promos))
		e.promoIndex = 0
		e.metrics.correction("promo")
	}
}

// reconcile arms or disarms the cycles after any input changed. It never shortens or
// extends a wait that is already in flight.
func (e *Engine) reconcile() {
	e.correctIndexes()

	if !e.ready() {
		// suspended: in-flight waits stay frozen until a snapshot arrives
		e.metrics.setMode(ModeNotReady)
		return
	}

	if !e.mediaCycleEnabled() {
		if !e.showingRates {
			slog.Debug("media cycle disabled while showing media, returning to rates")
			e.showingRates = true
			e.metrics.transition("media", ModeRates)
		}
		e.cycleRemaining = 0
	} else if e.cycleRemaining == 0 {
		if e.showingRates {
			e.cycleRemaining = e.ratesDwell()
		} else {
			e.cycleRemaining = e.mediaDwell()
		}
	}

	if len(e.promos) <= 1 {
		e.promoRemaining = 0
	} else if e.promoRemaining == 0 {
		e.promoRemaining = e.promoDwell()
	}

	e.metrics.setMode(e.mode())
}

func (e *Engine) SetRates(rates *store.RateSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rates == nil {
		e.rates = nil
	} else {
		r := *rates
		e.rates = &r
	}
	e.reconcile()
}

// SetSettings replaces the display settings; nil restores the defaults.
func (e *Engine) SetSettings(settings *store.DisplaySettings) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if settings == nil {
		e.settings = store.DefaultDisplaySettings()
	} else {
		e.settings = *settings
	}
	e.reconcile()
}

// SetMedia replaces the active media collection, already filtered and ordered.
func (e *Engine) SetMedia(items []store.MediaItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.media = slices.Clone(items)
	e.reconcile()
}

// SetPromos replaces the active promo collection, already filtered and ordered.
func (e *Engine) SetPromos(promos []store.PromoImage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.promos = slices.Clone(promos)
	e.reconcile()
}

func (e *Engine) SetBanner(banner *store.BannerSettings) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if banner == nil {
		e.banner = nil
		return
	}
	b := *banner
	e.banner = &b
}

// SetClock re-syncs the displayed wall clock. It has no effect on either cycle.
func (e *Engine) SetClock(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clock = now
}

// Advance moves the engine forward by elapsed, firing every transition whose dwell ends
// inside that window in order. Advancing once by d is equivalent to advancing many times
// by pieces summing to d.
func (e *Engine) Advance(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for elapsed > 0 {
		ready := e.ready()
		cycleActive := ready && e.cycleRemaining > 0
		promoActive := ready && e.showingRates && e.promoRemaining > 0

		step := elapsed
		if cycleActive {
			step = min(step, e.cycleRemaining)
		}
		if promoActive {
			step = min(step, e.promoRemaining)
		}

		e.clock = e.clock.Add(step)
		elapsed -= step

		// both may expire on the same step; their relative order does not matter
		if promoActive {
			e.promoRemaining -= step
			if e.promoRemaining == 0 {
				e.advancePromo()
			}
		}
		if cycleActive {
			e.cycleRemaining -= step
			if e.cycleRemaining == 0 {
				e.advanceCycle()
			}
		}
	}
}

func (e *Engine) advanceCycle() {
	if e.showingRates {
		e.correctIndexes()
		e.showingRates = false
		e.cycleRemaining = e.mediaDwell()
		slog.Debug("showing media", "index", e.mediaIndex, "name", e.media[e.mediaIndex].Name, "dwell", e.cycleRemaining)
		e.metrics.transition("rates", ModeMedia)
	} else {
		e.mediaIndex = (e.mediaIndex + 1) % len(e.media)
		e.showingRates = true
		e.cycleRemaining = e.ratesDwell()
		slog.Debug("showing rates", "next_media_index", e.mediaIndex, "dwell", e.cycleRemaining)
		e.metrics.transition("media", ModeRates)
	}
	e.metrics.setMode(e.mode())
}

func (e *Engine) advancePromo() {
	e.promoIndex = (e.promoIndex + 1) % len(e.promos)
	e.promoRemaining = e.promoDwell()
	slog.Debug("advancing promo", "index", e.promoIndex, "dwell", e.promoRemaining)
	e.metrics.promoAdvanced()
}

// Directive returns a snapshot of what should be rendered now.
func (e *Engine) Directive() Directive {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := Directive{
		Mode:  e.mode(),
		Clock: e.clock,
	}

	switch d.Mode {
	case ModeNotReady:
		return d
	case ModeMedia:
		if e.mediaIndex < len(e.media) {
			m := e.media[e.mediaIndex]
			d.Media = &m
			d.MediaIndex = e.mediaIndex
		}
		return d
	}

	rates := *e.rates
	settings := e.settings
	d.Rates = &rates
	d.Settings = &settings
	if e.banner != nil && e.banner.BannerImageURL != "" {
		banner := *e.banner
		d.Banner = &banner
	}
	d.PromoCount = len(e.promos)
	if e.promoIndex < len(e.promos) {
		p := e.promos[e.promoIndex]
		d.Promo = &p
		d.PromoIndex = e.promoIndex
		d.Transition = p.TransitionEffect.OrDefault()
	}
	return d
}
