package rotation

import (
	"context"

	"github.com/aouyang1/ratedisplay/store"
)

// Source supplies the collections the engine rotates through. Media and promos are
// expected already filtered to active items and ordered by order_index.
type Source interface {
	FetchCurrentRate(ctx context.Context) (*store.RateSnapshot, error)
	FetchDisplaySettings(ctx context.Context) (*store.DisplaySettings, error)
	FetchActiveMedia(ctx context.Context) ([]store.MediaItem, error)
	FetchActivePromos(ctx context.Context) ([]store.PromoImage, error)
	FetchBannerSettings(ctx context.Context) (*store.BannerSettings, error)
}

// StoreSource reads the collections straight from the local database.
type StoreSource struct {
	db *store.Database
}

func NewStoreSource(db *store.Database) *StoreSource {
	return &StoreSource{db: db}
}

func (s *StoreSource) FetchCurrentRate(ctx context.Context) (*store.RateSnapshot, error) {
	return s.db.GetCurrentRates(ctx)
}

func (s *StoreSource) FetchDisplaySettings(ctx context.Context) (*store.DisplaySettings, error) {
	return s.db.GetDisplaySettings(ctx)
}

func (s *StoreSource) FetchActiveMedia(ctx context.Context) ([]store.MediaItem, error) {
	return s.db.ListMediaItems(ctx, true)
}

func (s *StoreSource) FetchActivePromos(ctx context.Context) ([]store.PromoImage, error) {
	return s.db.ListPromoImages(ctx, true)
}

func (s *StoreSource) FetchBannerSettings(ctx context.Context) (*store.BannerSettings, error) {
	return s.db.GetBannerSettings(ctx)
}
