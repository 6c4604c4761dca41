package templates

import (
	"fmt"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"github.com/aouyang1/ratedisplay/store"
)

func rupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(0)
}

func clockDate(t time.Time) string {
	return t.Format("Monday 02-Jan-2006")
}

func clockTime(t time.Time) string {
	return t.Format("15:04:05")
}

func gridClass(s *store.DisplaySettings) string {
	if s != nil && s.Orientation == store.OrientationVertical {
		return "grid grid-cols-1"
	}
	return "grid grid-cols-2"
}

func bannerHeight(b *store.BannerSettings) int {
	if b.BannerHeight <= 0 {
		return store.DefaultBannerHeight
	}
	return b.BannerHeight
}

func promoClass(effect store.TransitionEffect) string {
	return "promo promo-" + string(effect.OrDefault())
}

func styleAttr(s *store.DisplaySettings) string {
	if s == nil {
		d := store.DefaultDisplaySettings()
		s = &d
	}
	return fmt.Sprintf("background-color: %s; color: %s;", templ.EscapeString(s.BackgroundColor), templ.EscapeString(s.TextColor))
}
