package templates

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aouyang1/ratedisplay/rotation"
	"github.com/aouyang1/ratedisplay/store"
)

func render(t *testing.T, d rotation.Directive) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, DisplayFrame(d).Render(context.Background(), &buf))
	return buf.String()
}

func TestDisplayFrameNotReady(t *testing.T) {
	html := render(t, rotation.Directive{Mode: rotation.ModeNotReady})
	assert.Contains(t, html, "Loading rates")
}

func TestDisplayFrameRates(t *testing.T) {
	rates := store.DefaultRateSnapshot()
	rates.Gold24kSale = decimal.RequireFromString("7250.5")
	settings := store.DefaultDisplaySettings()
	settings.Orientation = store.OrientationVertical

	html := render(t, rotation.Directive{
		Mode:       rotation.ModeRates,
		Clock:      time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC),
		Rates:      &rates,
		Settings:   &settings,
		Promo:      &store.PromoImage{ID: 4, Name: `<b>sale</b>`, ImageURL: "/uploads/promo/a.png"},
		PromoIndex: 1,
		PromoCount: 3,
		Transition: store.TransitionZoomIn,
		Banner:     &store.BannerSettings{BannerImageURL: "/uploads/banner/b.png"},
	})

	assert.Contains(t, html, "Friday 01-Mar-2024")
	assert.Contains(t, html, "09:05:07")
	assert.Contains(t, html, "₹7251")
	assert.Contains(t, html, "grid grid-cols-1")
	assert.Contains(t, html, "promo promo-zoom-in")
	assert.Contains(t, html, `<img id="promo-4" hx-preserve="true"`)
	assert.Contains(t, html, "&lt;b&gt;sale&lt;/b&gt;")
	assert.NotContains(t, html, "<b>sale</b>")
	assert.Contains(t, html, "height: 120px;")
	assert.Equal(t, 1, bytes.Count([]byte(html), []byte("opacity-100")))
}

func TestDisplayFrameMedia(t *testing.T) {
	html := render(t, rotation.Directive{
		Mode:  rotation.ModeMedia,
		Media: &store.MediaItem{ID: 2, FileURL: "/uploads/media/clip.mp4", MediaType: store.MediaTypeVideo},
	})
	assert.Contains(t, html, `<video id="media-2" hx-preserve="true"`)
	assert.Contains(t, html, `src="/uploads/media/clip.mp4"`)

	html = render(t, rotation.Directive{
		Mode:  rotation.ModeMedia,
		Media: &store.MediaItem{ID: 3, Name: "front.jpg", FileURL: "/uploads/media/front.jpg", MediaType: store.MediaTypeImage},
	})
	assert.Contains(t, html, `<img id="media-3" hx-preserve="true"`)
}

// flakyWriter fails a single write and accepts every other one.
type flakyWriter struct {
	failOn int
	calls  int
}

func (f *flakyWriter) Write(p []byte) (int, error) {
	f.calls++
	if f.calls == f.failOn {
		return 0, errors.New("connection reset")
	}
	return len(p), nil
}

func TestDisplayFrameRatesReportsWriteErrors(t *testing.T) {
	rates := store.DefaultRateSnapshot()
	d := rotation.Directive{Mode: rotation.ModeRates, Rates: &rates}

	w := &flakyWriter{failOn: 2}
	err := DisplayFrame(d).Render(context.Background(), w)
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, 2, w.calls)
}
