// Package templates renders the TV display pages
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/aouyang1/ratedisplay/rotation"
	"github.com/aouyang1/ratedisplay/store"
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Today's Rates</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://cdn.tailwindcss.com"></script>
<style>
html, body { margin: 0; height: 100%; overflow: hidden; background: #000; }
#frame { height: 100vh; width: 100vw; }
.promo { animation-duration: 0.8s; animation-fill-mode: both; }
.promo-fade { animation-name: fade; }
.promo-slide-left { animation-name: slide-left; }
.promo-slide-right { animation-name: slide-right; }
.promo-zoom-in { animation-name: zoom-in; }
.promo-zoom-out { animation-name: zoom-out; }
.promo-flip-x { animation-name: flip-x; }
.promo-flip-y { animation-name: flip-y; }
.promo-rotate-in { animation-name: rotate-in; }
.promo-rotate-out { animation-name: rotate-out; }
.promo-bounce { animation-name: bounce; }
@keyframes fade { from { opacity: 0; } to { opacity: 1; } }
@keyframes slide-left { from { transform: translateX(100%); } to { transform: none; } }
@keyframes slide-right { from { transform: translateX(-100%); } to { transform: none; } }
@keyframes zoom-in { from { transform: scale(0.5); opacity: 0; } to { transform: none; opacity: 1; } }
@keyframes zoom-out { from { transform: scale(1.5); opacity: 0; } to { transform: none; opacity: 1; } }
@keyframes flip-x { from { transform: rotateX(90deg); } to { transform: none; } }
@keyframes flip-y { from { transform: rotateY(90deg); } to { transform: none; } }
@keyframes rotate-in { from { transform: rotate(-180deg); opacity: 0; } to { transform: none; opacity: 1; } }
@keyframes rotate-out { from { transform: rotate(180deg); opacity: 0; } to { transform: none; opacity: 1; } }
@keyframes bounce { 0% { transform: scale(0.3); } 60% { transform: scale(1.05); } 100% { transform: none; } }
</style>
</head>
<body>
`

// DisplayPage is the full TV page. The frame is re-fetched every second and swapped in place.
func DisplayPage(d rotation.Directive) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<div id="frame" hx-get="/tv/frame" hx-trigger="every 1s" hx-swap="innerHTML">`); err != nil {
			return err
		}
		if err := DisplayFrame(d).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>\n</body>\n</html>\n")
		return err
	})
}

// DisplayFrame renders the content for the directive's mode.
func DisplayFrame(d rotation.Directive) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		switch d.Mode {
		case rotation.ModeMedia:
			return renderMedia(w, d.Media)
		case rotation.ModeRates:
			return renderRates(w, d)
		default:
			_, err := io.WriteString(w, `<div class="flex h-full items-center justify-center text-3xl text-white">Loading rates...</div>`)
			return err
		}
	})
}

func renderMedia(w io.Writer, m *store.MediaItem) error {
	if m == nil {
		return nil
	}
	src := templ.EscapeString(m.FileURL)
	var err error
	if m.MediaType == store.MediaTypeVideo {
		// hx-preserve keeps the element with the same id across frame swaps so playback continues
		_, err = fmt.Fprintf(w, `<video id="media-%d" hx-preserve="true" class="h-full w-full object-contain" src="%s" autoplay muted loop playsinline></video>`, m.ID, src)
	} else {
		_, err = fmt.Fprintf(w, `<img id="media-%d" hx-preserve="true" class="h-full w-full object-contain" src="%s" alt="%s">`, m.ID, src, templ.EscapeString(m.Name))
	}
	return err
}

func renderRates(out io.Writer, d rotation.Directive) error {
	w := &errWriter{w: out}
	settings := d.Settings
	if settings == nil {
		defaults := store.DefaultDisplaySettings()
		settings = &defaults
	}

	w.printf(`<div class="flex h-full flex-col" style="%s">`, styleAttr(settings))
	w.printf(`<header class="flex justify-between p-6 text-2xl"><span>%s</span><span>%s</span></header>`,
		templ.EscapeString(clockDate(d.Clock)), templ.EscapeString(clockTime(d.Clock)))

	w.printf(`<main class="%s flex-1 gap-6 p-6">`, gridClass(settings))
	w.printf(`<section class="flex flex-col justify-center gap-4">`)
	if d.Rates != nil {
		numberClass := templ.EscapeString(settings.RateNumberFontSize)
		rows := []struct {
			label          string
			sale, purchase string
		}{
			{"24K Gold / 10g", rupees(d.Rates.Gold24kSale), rupees(d.Rates.Gold24kPurchase)},
			{"22K Gold / 10g", rupees(d.Rates.Gold22kSale), rupees(d.Rates.Gold22kPurchase)},
			{"18K Gold / 10g", rupees(d.Rates.Gold18kSale), rupees(d.Rates.Gold18kPurchase)},
			{"Silver / kg", rupees(d.Rates.SilverPerKgSale), rupees(d.Rates.SilverPerKgPurchase)},
		}
		w.printf(`<div class="grid grid-cols-3 text-xl font-semibold"><span></span><span>Sale</span><span>Purchase</span></div>`)
		for _, row := range rows {
			w.printf(`<div class="grid grid-cols-3 items-center"><span class="text-2xl">%s</span><span class="%s font-bold">%s</span><span class="%s font-bold">%s</span></div>`,
				templ.EscapeString(row.label), numberClass, templ.EscapeString(row.sale), numberClass, templ.EscapeString(row.purchase))
		}
	}
	w.printf(`</section>`)

	w.printf(`<section class="flex flex-col items-center justify-center">`)
	if d.Promo != nil {
		w.printf(`<img id="promo-%d" hx-preserve="true" class="%s max-h-full max-w-full object-contain" src="%s" alt="%s">`,
			d.Promo.ID, promoClass(d.Transition), templ.EscapeString(d.Promo.ImageURL), templ.EscapeString(d.Promo.Name))
		if d.PromoCount > 1 {
			w.printf(`<div class="mt-4 flex gap-2">`)
			for i := 0; i < d.PromoCount; i++ {
				opacity := "opacity-30"
				if i == d.PromoIndex {
					opacity = "opacity-100"
				}
				w.printf(`<span class="h-3 w-3 rounded-full bg-current %s"></span>`, opacity)
			}
			w.printf(`</div>`)
		}
	}
	w.printf(`</section>`)
	w.printf(`</main>`)

	if d.Banner != nil {
		w.printf(`<footer style="height: %dpx;"><img class="h-full w-full object-cover" src="%s" alt="banner"></footer>`,
			bannerHeight(d.Banner), templ.EscapeString(d.Banner.BannerImageURL))
	}
	w.printf(`</div>`)
	return w.err
}

// errWriter keeps the first write error so a long run of printf calls needs one check.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
