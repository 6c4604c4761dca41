package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "display.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewDatabaseSeedsDefaults(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	rates, err := db.GetCurrentRates(ctx)
	require.NoError(t, err)
	require.NotNil(t, rates)
	assert.True(t, rates.Gold24kSale.Equal(decimal.NewFromInt(74850)))
	assert.True(t, rates.IsActive)

	settings, err := db.GetDisplaySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrientationHorizontal, settings.Orientation)
	assert.True(t, settings.ShowMedia)
	assert.Equal(t, DefaultRatesDisplaySeconds, settings.RatesDisplayDuration)
	assert.Equal(t, DefaultRefreshSeconds, settings.RefreshInterval)
}

func TestCreateRatesDeactivatesPredecessors(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	next := DefaultRateSnapshot()
	next.Gold24kSale = decimal.RequireFromString("75100.50")
	created, err := db.CreateRates(ctx, next)
	require.NoError(t, err)
	assert.True(t, created.Gold24kSale.Equal(decimal.RequireFromString("75100.50")))

	current, err := db.GetCurrentRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, current.ID)

	history, err := db.ListRates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	active := 0
	for _, r := range history {
		if r.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestUpdateDisplaySettings(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	settings, err := db.GetDisplaySettings(ctx)
	require.NoError(t, err)

	updated, err := db.UpdateDisplaySettings(ctx, settings.ID, DisplaySettingsPatch{
		Orientation:          ptr(OrientationVertical),
		ShowMedia:            ptr(false),
		RatesDisplayDuration: ptr(20),
	})
	require.NoError(t, err)
	assert.Equal(t, OrientationVertical, updated.Orientation)
	assert.False(t, updated.ShowMedia)
	assert.Equal(t, 20, updated.RatesDisplayDuration)
	assert.Equal(t, settings.TextColor, updated.TextColor)

	_, err = db.UpdateDisplaySettings(ctx, settings.ID+100, DisplaySettingsPatch{ShowMedia: ptr(true)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMediaItemsOrderingAndFilter(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	second, err := db.CreateMediaItem(ctx, MediaItem{Name: "b.mp4", FileURL: "/uploads/media/b.mp4", MediaType: MediaTypeVideo, DurationSeconds: 20, OrderIndex: 1, IsActive: true})
	require.NoError(t, err)
	first, err := db.CreateMediaItem(ctx, MediaItem{Name: "a.jpg", FileURL: "/uploads/media/a.jpg", MediaType: MediaTypeImage, DurationSeconds: 10, OrderIndex: 0, IsActive: true})
	require.NoError(t, err)
	_, err = db.CreateMediaItem(ctx, MediaItem{Name: "c.jpg", FileURL: "/uploads/media/c.jpg", MediaType: MediaTypeImage, OrderIndex: 2, IsActive: false})
	require.NoError(t, err)

	all, err := db.ListMediaItems(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := db.ListMediaItems(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)

	next, err := db.GetNextMediaOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	byURL, err := db.GetMediaItemByURL(ctx, "/uploads/media/b.mp4")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byURL.ID)
}

func TestUpdateAndDeleteMediaItem(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	item, err := db.CreateMediaItem(ctx, MediaItem{Name: "a.jpg", FileURL: "/uploads/media/a.jpg", MediaType: MediaTypeImage, DurationSeconds: 30, IsActive: true})
	require.NoError(t, err)

	updated, err := db.UpdateMediaItem(ctx, item.ID, MediaItemPatch{IsActive: ptr(false), DurationSeconds: ptr(12)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 12, updated.DurationSeconds)
	assert.Equal(t, "a.jpg", updated.Name)

	require.NoError(t, db.DeleteMediaItem(ctx, item.ID))
	assert.ErrorIs(t, db.DeleteMediaItem(ctx, item.ID), ErrNotFound)

	_, err = db.GetMediaItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterMediaItemKeepsOneRowPerURL(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	// a directory scan registers the file before the upload handler writes its row
	registered, created, err := db.RegisterMediaItem(ctx, MediaItem{Name: "b1c2.mp4", FileURL: "/uploads/media/b1c2.mp4", MediaType: MediaTypeVideo, DurationSeconds: DefaultMediaSeconds, IsActive: true})
	require.NoError(t, err)
	assert.True(t, created)

	uploaded, err := db.CreateMediaItem(ctx, MediaItem{Name: "showroom.mp4", FileURL: "/uploads/media/b1c2.mp4", MediaType: MediaTypeVideo, DurationSeconds: 12, IsActive: false, MimeType: "video/mp4"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, uploaded.ID)
	assert.Equal(t, "showroom.mp4", uploaded.Name)
	assert.Equal(t, 12, uploaded.DurationSeconds)
	assert.False(t, uploaded.IsActive)

	again, created, err := db.RegisterMediaItem(ctx, MediaItem{Name: "b1c2.mp4", FileURL: "/uploads/media/b1c2.mp4", MediaType: MediaTypeVideo, DurationSeconds: DefaultMediaSeconds, IsActive: true})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, registered.ID, again.ID)
	assert.False(t, again.IsActive)

	all, err := db.ListMediaItems(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterPromoImageKeepsOneRowPerURL(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	first, created, err := db.RegisterPromoImage(ctx, PromoImage{Name: "sale.png", ImageURL: "/uploads/promo/s3/sale.png", DurationSeconds: 5, IsActive: true})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, TransitionFade, first.TransitionEffect)

	second, created, err := db.RegisterPromoImage(ctx, PromoImage{Name: "sale.png", ImageURL: "/uploads/promo/s3/sale.png", DurationSeconds: 9, IsActive: true})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.DurationSeconds)

	replaced, err := db.CreatePromoImage(ctx, PromoImage{Name: "sale.png", ImageURL: "/uploads/promo/s3/sale.png", DurationSeconds: 7, TransitionEffect: TransitionBounce, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, replaced.ID)
	assert.Equal(t, TransitionBounce, replaced.TransitionEffect)

	all, err := db.ListPromoImages(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPromoImagesTransitionFallback(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	promo, err := db.CreatePromoImage(ctx, PromoImage{Name: "sale.png", ImageURL: "/uploads/promo/sale.png", DurationSeconds: 5, TransitionEffect: "spin", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, TransitionFade, promo.TransitionEffect)

	updated, err := db.UpdatePromoImage(ctx, promo.ID, PromoImagePatch{TransitionEffect: ptr(TransitionBounce)})
	require.NoError(t, err)
	assert.Equal(t, TransitionBounce, updated.TransitionEffect)

	active, err := db.ListPromoImages(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, db.DeletePromoImage(ctx, promo.ID))
	active, err = db.ListPromoImages(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestBannerSettings(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	banner, err := db.GetBannerSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, banner)

	_, err = db.CreateBannerSettings(ctx, BannerSettings{BannerImageURL: "/uploads/banner/one.png"})
	require.NoError(t, err)
	second, err := db.CreateBannerSettings(ctx, BannerSettings{BannerImageURL: "/uploads/banner/two.png", BannerHeight: 90})
	require.NoError(t, err)

	banner, err = db.GetBannerSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, banner)
	assert.Equal(t, second.ID, banner.ID)
	assert.Equal(t, 90, banner.BannerHeight)

	_, err = db.UpdateBannerSettings(ctx, second.ID, BannerSettingsPatch{IsActive: ptr(false)})
	require.NoError(t, err)

	banner, err = db.GetBannerSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, banner)
}

func TestTransitionEffectValid(t *testing.T) {
	assert.True(t, TransitionFlipY.Valid())
	assert.False(t, TransitionEffect("spin").Valid())
	assert.Equal(t, TransitionZoomIn, TransitionZoomIn.OrDefault())
}
