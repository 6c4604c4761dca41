package store

import (
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// TransitionEffect selects the animation used when a promo image comes on screen.
// It has no influence on timing.
type TransitionEffect string

const (
	TransitionFade       TransitionEffect = "fade"
	TransitionSlideLeft  TransitionEffect = "slide-left"
	TransitionSlideRight TransitionEffect = "slide-right"
	TransitionZoomIn     TransitionEffect = "zoom-in"
	TransitionZoomOut    TransitionEffect = "zoom-out"
	TransitionFlipX      TransitionEffect = "flip-x"
	TransitionFlipY      TransitionEffect = "flip-y"
	TransitionRotateIn   TransitionEffect = "rotate-in"
	TransitionRotateOut  TransitionEffect = "rotate-out"
	TransitionBounce     TransitionEffect = "bounce"
)

var transitionEffects = mapset.NewSet(
	TransitionFade, TransitionSlideLeft, TransitionSlideRight,
	TransitionZoomIn, TransitionZoomOut, TransitionFlipX, TransitionFlipY,
	TransitionRotateIn, TransitionRotateOut, TransitionBounce,
)

func (t TransitionEffect) Valid() bool {
	return transitionEffects.Contains(t)
}

// OrDefault maps unknown effects to fade.
func (t TransitionEffect) OrDefault() TransitionEffect {
	if t.Valid() {
		return t
	}
	return TransitionFade
}

const (
	DefaultRatesDisplaySeconds = 15
	DefaultRefreshSeconds      = 30
	DefaultMediaSeconds        = 30
	DefaultPromoSeconds        = 5
	DefaultBannerHeight        = 120

	// MaxDurationSeconds bounds every dwell and refresh setting to one day.
	MaxDurationSeconds = 86400
)

type RateSnapshot struct {
	ID                  int64           `json:"id"`
	Gold24kSale         decimal.Decimal `json:"gold_24k_sale"`
	Gold24kPurchase     decimal.Decimal `json:"gold_24k_purchase"`
	Gold22kSale         decimal.Decimal `json:"gold_22k_sale"`
	Gold22kPurchase     decimal.Decimal `json:"gold_22k_purchase"`
	Gold18kSale         decimal.Decimal `json:"gold_18k_sale"`
	Gold18kPurchase     decimal.Decimal `json:"gold_18k_purchase"`
	SilverPerKgSale     decimal.Decimal `json:"silver_per_kg_sale"`
	SilverPerKgPurchase decimal.Decimal `json:"silver_per_kg_purchase"`
	IsActive            bool            `json:"is_active"`
	CreatedDate         string          `json:"created_date"`
}

type DisplaySettings struct {
	ID                   int64       `json:"id"`
	Orientation          Orientation `json:"orientation"`
	BackgroundColor      string      `json:"background_color"`
	TextColor            string      `json:"text_color"`
	RateNumberFontSize   string      `json:"rate_number_font_size"`
	ShowMedia            bool        `json:"show_media"`
	RatesDisplayDuration int         `json:"rates_display_duration"`
	RefreshInterval      int         `json:"refresh_interval"`
	CreatedDate          string      `json:"created_date"`
}

// DefaultDisplaySettings is what the display falls back to before any settings row is known.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		Orientation:          OrientationHorizontal,
		BackgroundColor:      "#FFF8E1",
		TextColor:            "#212529",
		RateNumberFontSize:   "text-4xl",
		ShowMedia:            true,
		RatesDisplayDuration: DefaultRatesDisplaySeconds,
		RefreshInterval:      DefaultRefreshSeconds,
	}
}

type DisplaySettingsPatch struct {
	Orientation          *Orientation `json:"orientation"`
	BackgroundColor      *string      `json:"background_color"`
	TextColor            *string      `json:"text_color"`
	RateNumberFontSize   *string      `json:"rate_number_font_size"`
	ShowMedia            *bool        `json:"show_media"`
	RatesDisplayDuration *int         `json:"rates_display_duration"`
	RefreshInterval      *int         `json:"refresh_interval"`
}

type MediaItem struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FileURL         string    `json:"file_url"`
	MediaType       MediaType `json:"media_type"`
	DurationSeconds int       `json:"duration_seconds"`
	OrderIndex      int       `json:"order_index"`
	IsActive        bool      `json:"is_active"`
	FileSize        int64     `json:"file_size"`
	MimeType        string    `json:"mime_type"`
	CreatedDate     string    `json:"created_date"`
}

type MediaItemPatch struct {
	Name            *string `json:"name"`
	DurationSeconds *int    `json:"duration_seconds"`
	OrderIndex      *int    `json:"order_index"`
	IsActive        *bool   `json:"is_active"`
}

type PromoImage struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	ImageURL         string           `json:"image_url"`
	DurationSeconds  int              `json:"duration_seconds"`
	TransitionEffect TransitionEffect `json:"transition_effect"`
	OrderIndex       int              `json:"order_index"`
	IsActive         bool             `json:"is_active"`
	FileSize         int64            `json:"file_size"`
	CreatedDate      string           `json:"created_date"`
}

type PromoImagePatch struct {
	Name             *string           `json:"name"`
	DurationSeconds  *int              `json:"duration_seconds"`
	TransitionEffect *TransitionEffect `json:"transition_effect"`
	OrderIndex       *int              `json:"order_index"`
	IsActive         *bool             `json:"is_active"`
}

type BannerSettings struct {
	ID             int64  `json:"id"`
	BannerImageURL string `json:"banner_image_url"`
	BannerHeight   int    `json:"banner_height"`
	IsActive       bool   `json:"is_active"`
	CreatedDate    string `json:"created_date"`
}

type BannerSettingsPatch struct {
	BannerImageURL *string `json:"banner_image_url"`
	BannerHeight   *int    `json:"banner_height"`
	IsActive       *bool   `json:"is_active"`
}
