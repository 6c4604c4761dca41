package rotation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aouyang1/ratedisplay/store"
)

type fakeSource struct {
	mu       sync.Mutex
	rates    *store.RateSnapshot
	media    []store.MediaItem
	mediaErr error

	rateCalls atomic.Int32
}

func (f *fakeSource) FetchCurrentRate(ctx context.Context) (*store.RateSnapshot, error) {
	f.rateCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rates, nil
}

func (f *fakeSource) FetchDisplaySettings(ctx context.Context) (*store.DisplaySettings, error) {
	return testSettings(true, 1), nil
}

func (f *fakeSource) FetchActiveMedia(ctx context.Context) ([]store.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media, f.mediaErr
}

func (f *fakeSource) FetchActivePromos(ctx context.Context) ([]store.PromoImage, error) {
	return promosWithDurations(1, 1), nil
}

func (f *fakeSource) FetchBannerSettings(ctx context.Context) (*store.BannerSettings, error) {
	return nil, nil
}

func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("runner did not stop after cancel")
		}
	})
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(nil, &fakeSource{}, 0, 0, nil)
	assert.Error(t, err)

	_, err = NewRunner(NewEngine(nil), nil, 0, 0, nil)
	assert.Error(t, err)

	r, err := NewRunner(NewEngine(nil), &fakeSource{}, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, r.pollInterval)
	assert.Equal(t, DefaultTickInterval, r.tickInterval)
}

func TestRunnerPollsAndRotates(t *testing.T) {
	source := &fakeSource{rates: testRates(), media: mediaWithDurations(1)}
	engine := NewEngine(nil)
	r, err := NewRunner(engine, source, time.Hour, 10*time.Millisecond, nil)
	require.NoError(t, err)
	startRunner(t, r)

	require.Eventually(t, func() bool {
		return engine.Directive().Mode == ModeRates
	}, time.Second, 10*time.Millisecond)

	// rates dwell is 1s in the fake settings
	require.Eventually(t, func() bool {
		return engine.Directive().Mode == ModeMedia
	}, 3*time.Second, 10*time.Millisecond)

	assert.False(t, r.LastPoll().IsZero())
}

func TestRunnerRefreshRepolls(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(nil)
	r, err := NewRunner(engine, source, time.Hour, 10*time.Millisecond, nil)
	require.NoError(t, err)
	startRunner(t, r)

	require.Eventually(t, func() bool {
		return source.rateCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, ModeNotReady, engine.Directive().Mode)

	source.mu.Lock()
	source.rates = testRates()
	source.mu.Unlock()
	r.Refresh()

	require.Eventually(t, func() bool {
		return engine.Directive().Mode == ModeRates
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, source.rateCalls.Load(), int32(2))
}

func TestRunnerKeepsLastSnapshotOnError(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	source := &fakeSource{rates: testRates(), media: mediaWithDurations(30, 30)}
	engine := NewEngine(metrics)
	r, err := NewRunner(engine, source, 20*time.Millisecond, 10*time.Millisecond, metrics)
	require.NoError(t, err)
	startRunner(t, r)

	require.Eventually(t, func() bool {
		return engine.Directive().Mode == ModeRates
	}, time.Second, 5*time.Millisecond)

	source.mu.Lock()
	source.media = nil
	source.mediaErr = errors.New("connection refused")
	source.mu.Unlock()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.PollErrors.WithLabelValues("media")) > 0
	}, time.Second, 5*time.Millisecond)

	engine.mu.Lock()
	mediaCount := len(engine.media)
	engine.mu.Unlock()
	assert.Equal(t, 2, mediaCount)
}
