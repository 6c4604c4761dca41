package rotation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultTickInterval = 250 * time.Millisecond

	clockInterval = time.Second
	fetchTimeout  = 10 * time.Second
)

// Runner drives an Engine from wall-clock tickers and keeps its inputs fresh by polling
// each data source on its own cadence.
type Runner struct {
	engine  *Engine
	metrics *Metrics

	pollInterval time.Duration
	tickInterval time.Duration
	pollers      []*poller

	mu       sync.Mutex
	lastPoll time.Time
}

type poller struct {
	name    string
	poll    func(ctx context.Context) error
	refresh chan struct{}
}

func NewRunner(engine *Engine, source Source, pollInterval, tickInterval time.Duration, metrics *Metrics) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("no engine provided for runner")
	}
	if source == nil {
		return nil, errors.New("no source provided for runner")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}

	r := &Runner{
		engine:       engine,
		metrics:      metrics,
		pollInterval: pollInterval,
		tickInterval: tickInterval,
	}

	r.addPoller("rates", func(ctx context.Context) error {
		rates, err := source.FetchCurrentRate(ctx)
		if err != nil {
			return err
		}
		engine.SetRates(rates)
		return nil
	})
	r.addPoller("settings", func(ctx context.Context) error {
		settings, err := source.FetchDisplaySettings(ctx)
		if err != nil {
			return err
		}
		engine.SetSettings(settings)
		return nil
	})
	r.addPoller("media", func(ctx context.Context) error {
		media, err := source.FetchActiveMedia(ctx)
		if err != nil {
			return err
		}
		engine.SetMedia(media)
		return nil
	})
	r.addPoller("promos", func(ctx context.Context) error {
		promos, err := source.FetchActivePromos(ctx)
		if err != nil {
			return err
		}
		engine.SetPromos(promos)
		return nil
	})
	r.addPoller("banner", func(ctx context.Context) error {
		banner, err := source.FetchBannerSettings(ctx)
		if err != nil {
			return err
		}
		engine.SetBanner(banner)
		return nil
	})

	return r, nil
}

func (r *Runner) addPoller(name string, poll func(ctx context.Context) error) {
	r.pollers = append(r.pollers, &poller{
		name:    name,
		poll:    poll,
		refresh: make(chan struct{}, 1),
	})
}

func (r *Runner) Engine() *Engine {
	return r.engine
}

// LastPoll reports when any source was last polled successfully.
func (r *Runner) LastPoll() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPoll
}

// Refresh asks every poller to fetch now instead of waiting for its next tick.
func (r *Runner) Refresh() {
	for _, p := range r.pollers {
		select {
		case p.refresh <- struct{}{}:
		default:
			// refresh already pending
		}
	}
}

// Run blocks until ctx is cancelled. Every ticker it started is stopped before it returns.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range r.pollers {
		wg.Add(1)
		go func(p *poller) {
			defer wg.Done()
			r.runPoller(ctx, p)
		}(p)
	}

	r.runClock(ctx)
	wg.Wait()
	slog.Info("display rotation stopped")
}

func (r *Runner) runClock(ctx context.Context) {
	tick := time.NewTicker(r.tickInterval)
	defer tick.Stop()
	clock := time.NewTicker(clockInterval)
	defer clock.Stop()

	last := time.Now()
	r.engine.SetClock(last)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			r.engine.Advance(now.Sub(last))
			last = now
		case now := <-clock.C:
			r.engine.SetClock(now)
		}
	}
}

func (r *Runner) runPoller(ctx context.Context, p *poller) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	// Initial fetch
	r.pollOnce(ctx, p)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}
		r.pollOnce(ctx, p)
	}
}

func (r *Runner) pollOnce(ctx context.Context, p *poller) {
	pollCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	if err := p.poll(pollCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// keep operating on the last snapshot of this source
		slog.Warn("error while polling display source", "source", p.name, "error", err)
		r.metrics.pollError(p.name)
		return
	}

	r.mu.Lock()
	r.lastPoll = time.Now()
	r.mu.Unlock()
}
