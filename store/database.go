// Package store database for rates, display settings, media, promo images and banners
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers anyway, a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{db: db}

	if err := database.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := database.seedDefaults(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	return database, nil
}

func (d *Database) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS gold_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gold_24k_sale          TEXT NOT NULL,
		gold_24k_purchase      TEXT NOT NULL,
		gold_22k_sale          TEXT NOT NULL,
		gold_22k_purchase      TEXT NOT NULL,
		gold_18k_sale          TEXT NOT NULL,
		gold_18k_purchase      TEXT NOT NULL,
		silver_per_kg_sale     TEXT NOT NULL,
		silver_per_kg_purchase TEXT NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 1,
		created_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS display_settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		orientation            TEXT NOT NULL DEFAULT 'horizontal',
		background_color       TEXT NOT NULL DEFAULT '#FFF8E1',
		text_color             TEXT NOT NULL DEFAULT '#212529',
		rate_number_font_size  TEXT NOT NULL DEFAULT 'text-4xl',
		show_media             INTEGER NOT NULL DEFAULT 1,
		rates_display_duration INTEGER NOT NULL DEFAULT 15,
		refresh_interval       INTEGER NOT NULL DEFAULT 30,
		created_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS media_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL,
		file_url         TEXT NOT NULL,
		media_type       TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 30,
		order_index      INTEGER NOT NULL DEFAULT 0,
		is_active        INTEGER NOT NULL DEFAULT 1,
		file_size        INTEGER NOT NULL DEFAULT 0,
		mime_type        TEXT NOT NULL DEFAULT '',
		created_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_media_items_active_order ON media_items(is_active, order_index);
	DELETE FROM media_items WHERE id NOT IN (SELECT MIN(id) FROM media_items GROUP BY file_url);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_media_items_file_url ON media_items(file_url);
	CREATE TABLE IF NOT EXISTS promo_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name              TEXT NOT NULL,
		image_url         TEXT NOT NULL,
		duration_seconds  INTEGER NOT NULL DEFAULT 5,
		transition_effect TEXT NOT NULL DEFAULT 'fade',
		order_index       INTEGER NOT NULL DEFAULT 0,
		is_active         INTEGER NOT NULL DEFAULT 1,
		file_size         INTEGER NOT NULL DEFAULT 0,
		created_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_promo_images_active_order ON promo_images(is_active, order_index);
	DELETE FROM promo_images WHERE id NOT IN (SELECT MIN(id) FROM promo_images GROUP BY image_url);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_promo_images_image_url ON promo_images(image_url);
	CREATE TABLE IF NOT EXISTS banner_settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		banner_image_url TEXT NOT NULL DEFAULT '',
		banner_height    INTEGER NOT NULL DEFAULT 120,
		is_active        INTEGER NOT NULL DEFAULT 1,
		created_date TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.db.Exec(query)
	return err
}

// seedDefaults inserts a starting rate snapshot and the default display settings into an
// empty database so the display has something to show on first boot.
func (d *Database) seedDefaults(ctx context.Context) error {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gold_rates`).Scan(&count); err != nil {
		return fmt.Errorf("count rates: %w", err)
	}
	if count == 0 {
		if _, err := d.CreateRates(ctx, DefaultRateSnapshot()); err != nil {
			return err
		}
	}

	if _, err := d.GetDisplaySettings(ctx); err != nil {
		return err
	}
	return nil
}

// DefaultRateSnapshot is the snapshot seeded into a fresh database.
func DefaultRateSnapshot() RateSnapshot {
	return RateSnapshot{
		Gold24kSale:         decimal.NewFromInt(74850),
		Gold24kPurchase:     decimal.NewFromInt(73200),
		Gold22kSale:         decimal.NewFromInt(68620),
		Gold22kPurchase:     decimal.NewFromInt(67100),
		Gold18kSale:         decimal.NewFromInt(56140),
		Gold18kPurchase:     decimal.NewFromInt(54900),
		SilverPerKgSale:     decimal.NewFromInt(92500),
		SilverPerKgPurchase: decimal.NewFromInt(90800),
		IsActive:            true,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// update collects column assignments for a partial UPDATE statement.
type update struct {
	sets []string
	args []any
}

func (u *update) set(column string, value any) {
	u.sets = append(u.sets, column+" = ?")
	u.args = append(u.args, value)
}

func (u *update) empty() bool {
	return len(u.sets) == 0
}

func (d *Database) execUpdate(ctx context.Context, table string, id int64, u *update) error {
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(u.sets, ", "))
	result, err := d.db.ExecContext(ctx, stmt, append(u.args, id)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func (d *Database) execDelete(ctx context.Context, table string, id int64) error {
	result, err := d.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

const rateColumns = `id, gold_24k_sale, gold_24k_purchase, gold_22k_sale, gold_22k_purchase,
	gold_18k_sale, gold_18k_purchase, silver_per_kg_sale, silver_per_kg_purchase,
	is_active, created_date`

func scanRate(row rowScanner) (*RateSnapshot, error) {
	var r RateSnapshot
	err := row.Scan(
		&r.ID,
		&r.Gold24kSale, &r.Gold24kPurchase,
		&r.Gold22kSale, &r.Gold22kPurchase,
		&r.Gold18kSale, &r.Gold18kPurchase,
		&r.SilverPerKgSale, &r.SilverPerKgPurchase,
		&r.IsActive, &r.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetCurrentRates returns the newest active snapshot, or nil when none exists.
func (d *Database) GetCurrentRates(ctx context.Context) (*RateSnapshot, error) {
	query := `SELECT ` + rateColumns + ` FROM gold_rates
		WHERE is_active = 1
		ORDER BY created_date DESC, id DESC
		LIMIT 1`
	r, err := scanRate(d.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current rates: %w", err)
	}
	return r, nil
}

// CreateRates stores a new snapshot and deactivates all of its predecessors.
func (d *Database) CreateRates(ctx context.Context, r RateSnapshot) (*RateSnapshot, error) {
	var created *RateSnapshot
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE gold_rates SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("deactivate rates: %w", err)
		}

		const stmt = `
			INSERT INTO gold_rates (
				gold_24k_sale, gold_24k_purchase,
				gold_22k_sale, gold_22k_purchase,
				gold_18k_sale, gold_18k_purchase,
				silver_per_kg_sale, silver_per_kg_purchase,
				is_active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		`
		result, err := tx.ExecContext(ctx, stmt,
			r.Gold24kSale, r.Gold24kPurchase,
			r.Gold22kSale, r.Gold22kPurchase,
			r.Gold18kSale, r.Gold18kPurchase,
			r.SilverPerKgSale, r.SilverPerKgPurchase,
		)
		if err != nil {
			return fmt.Errorf("insert rates: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted id: %w", err)
		}

		created, err = scanRate(tx.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM gold_rates WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("read inserted rates: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListRates returns up to limit snapshots, newest first.
func (d *Database) ListRates(ctx context.Context, limit int) ([]RateSnapshot, error) {
	query := `SELECT ` + rateColumns + ` FROM gold_rates ORDER BY created_date DESC, id DESC LIMIT ?`
	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	rates := []RateSnapshot{}
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rates: %w", err)
		}
		rates = append(rates, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rates, nil
}

const settingsColumns = `id, orientation, background_color, text_color, rate_number_font_size,
	show_media, rates_display_duration, refresh_interval, created_date`

func scanSettings(row rowScanner) (*DisplaySettings, error) {
	var s DisplaySettings
	var orientation string
	err := row.Scan(
		&s.ID, &orientation, &s.BackgroundColor, &s.TextColor, &s.RateNumberFontSize,
		&s.ShowMedia, &s.RatesDisplayDuration, &s.RefreshInterval, &s.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	s.Orientation = Orientation(orientation)
	return &s, nil
}

// GetDisplaySettings returns the authoritative (newest) settings row, creating one with
// defaults if the table is empty.
func (d *Database) GetDisplaySettings(ctx context.Context) (*DisplaySettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM display_settings ORDER BY created_date DESC, id DESC LIMIT 1`

	s, err := scanSettings(d.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		// Bootstrap defaults if no settings row exists yet
		defaults := DefaultDisplaySettings()
		const stmt = `
			INSERT INTO display_settings (
				orientation, background_color, text_color, rate_number_font_size,
				show_media, rates_display_duration, refresh_interval
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := d.db.ExecContext(ctx, stmt,
			string(defaults.Orientation),
			defaults.BackgroundColor,
			defaults.TextColor,
			defaults.RateNumberFontSize,
			boolToInt(defaults.ShowMedia),
			defaults.RatesDisplayDuration,
			defaults.RefreshInterval,
		); err != nil {
			return nil, fmt.Errorf("insert default display settings: %w", err)
		}
		return d.GetDisplaySettings(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get display settings: %w", err)
	}
	return s, nil
}

func (d *Database) UpdateDisplaySettings(ctx context.Context, id int64, p DisplaySettingsPatch) (*DisplaySettings, error) {
	u := &update{}
	if p.Orientation != nil {
		u.set("orientation", string(*p.Orientation))
	}
	if p.BackgroundColor != nil {
		u.set("background_color", *p.BackgroundColor)
	}
	if p.TextColor != nil {
		u.set("text_color", *p.TextColor)
	}
	if p.RateNumberFontSize != nil {
		u.set("rate_number_font_size", *p.RateNumberFontSize)
	}
	if p.ShowMedia != nil {
		u.set("show_media", boolToInt(*p.ShowMedia))
	}
	if p.RatesDisplayDuration != nil {
		u.set("rates_display_duration", *p.RatesDisplayDuration)
	}
	if p.RefreshInterval != nil {
		u.set("refresh_interval", *p.RefreshInterval)
	}
	if !u.empty() {
		if err := d.execUpdate(ctx, "display_settings", id, u); err != nil {
			return nil, err
		}
	}

	s, err := scanSettings(d.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM display_settings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("display_settings %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get display settings: %w", err)
	}
	return s, nil
}

const mediaColumns = `id, name, file_url, media_type, duration_seconds, order_index,
	is_active, file_size, mime_type, created_date`

func scanMedia(row rowScanner) (*MediaItem, error) {
	var m MediaItem
	var mediaType string
	err := row.Scan(
		&m.ID, &m.Name, &m.FileURL, &mediaType, &m.DurationSeconds, &m.OrderIndex,
		&m.IsActive, &m.FileSize, &m.MimeType, &m.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	m.MediaType = MediaType(mediaType)
	return &m, nil
}

// ListMediaItems returns media ordered for display; activeOnly filters to is_active rows.
func (d *Database) ListMediaItems(ctx context.Context, activeOnly bool) ([]MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY order_index ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query media items: %w", err)
	}
	defer rows.Close()

	items := []MediaItem{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}

func (d *Database) GetMediaItem(ctx context.Context, id int64) (*MediaItem, error) {
	m, err := scanMedia(d.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media_items %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return m, nil
}

// GetMediaItemByURL looks a media item up by its stored-file URL.
func (d *Database) GetMediaItemByURL(ctx context.Context, fileURL string) (*MediaItem, error) {
	m, err := scanMedia(d.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE file_url = ? LIMIT 1`, fileURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media_items %s: %w", fileURL, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media item by url: %w", err)
	}
	return m, nil
}

const insertMediaItem = `
	INSERT INTO media_items (
		name, file_url, media_type, duration_seconds, order_index, is_active, file_size, mime_type
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateMediaItem stores m, overwriting any row that already holds the same file url.
func (d *Database) CreateMediaItem(ctx context.Context, m MediaItem) (*MediaItem, error) {
	const stmt = insertMediaItem + `
		ON CONFLICT(file_url) DO UPDATE SET
			name = excluded.name,
			media_type = excluded.media_type,
			duration_seconds = excluded.duration_seconds,
			order_index = excluded.order_index,
			is_active = excluded.is_active,
			file_size = excluded.file_size,
			mime_type = excluded.mime_type
		RETURNING id
	`
	var id int64
	err := d.db.QueryRowContext(ctx, stmt,
		m.Name, m.FileURL, string(m.MediaType), m.DurationSeconds, m.OrderIndex,
		boolToInt(m.IsActive), m.FileSize, m.MimeType,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert media item: %w", err)
	}
	return d.GetMediaItem(ctx, id)
}

// RegisterMediaItem stores m unless a row already holds its file url, in which case the
// existing row is returned untouched. created reports which happened.
func (d *Database) RegisterMediaItem(ctx context.Context, m MediaItem) (item *MediaItem, created bool, err error) {
	const stmt = insertMediaItem + `ON CONFLICT(file_url) DO NOTHING RETURNING id`
	var id int64
	err = d.db.QueryRowContext(ctx, stmt,
		m.Name, m.FileURL, string(m.MediaType), m.DurationSeconds, m.OrderIndex,
		boolToInt(m.IsActive), m.FileSize, m.MimeType,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		item, err = d.GetMediaItemByURL(ctx, m.FileURL)
		return item, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to register media item: %w", err)
	}
	item, err = d.GetMediaItem(ctx, id)
	return item, err == nil, err
}

func (d *Database) UpdateMediaItem(ctx context.Context, id int64, p MediaItemPatch) (*MediaItem, error) {
	u := &update{}
	if p.Name != nil {
		u.set("name", *p.Name)
	}
	if p.DurationSeconds != nil {
		u.set("duration_seconds", *p.DurationSeconds)
	}
	if p.OrderIndex != nil {
		u.set("order_index", *p.OrderIndex)
	}
	if p.IsActive != nil {
		u.set("is_active", boolToInt(*p.IsActive))
	}
	if !u.empty() {
		if err := d.execUpdate(ctx, "media_items", id, u); err != nil {
			return nil, err
		}
	}
	return d.GetMediaItem(ctx, id)
}

func (d *Database) DeleteMediaItem(ctx context.Context, id int64) error {
	return d.execDelete(ctx, "media_items", id)
}

// GetNextMediaOrder returns the order index that places a new item after every existing one.
func (d *Database) GetNextMediaOrder(ctx context.Context) (int, error) {
	return d.nextOrder(ctx, "media_items")
}

func (d *Database) nextOrder(ctx context.Context, table string) (int, error) {
	var maxOrder int
	err := d.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(order_index), -1) FROM %s`, table)).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to get max order: %w", err)
	}
	return maxOrder + 1, nil
}

const promoColumns = `id, name, image_url, duration_seconds, transition_effect, order_index,
	is_active, file_size, created_date`

func scanPromo(row rowScanner) (*PromoImage, error) {
	var p PromoImage
	var effect string
	err := row.Scan(
		&p.ID, &p.Name, &p.ImageURL, &p.DurationSeconds, &effect, &p.OrderIndex,
		&p.IsActive, &p.FileSize, &p.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	p.TransitionEffect = TransitionEffect(effect).OrDefault()
	return &p, nil
}

// ListPromoImages returns promo images ordered for display; activeOnly filters to is_active rows.
func (d *Database) ListPromoImages(ctx context.Context, activeOnly bool) ([]PromoImage, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_images`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY order_index ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo images: %w", err)
	}
	defer rows.Close()

	promos := []PromoImage{}
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promo image: %w", err)
		}
		promos = append(promos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return promos, nil
}

func (d *Database) GetPromoImage(ctx context.Context, id int64) (*PromoImage, error) {
	p, err := scanPromo(d.db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_images WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promo_images %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get promo image: %w", err)
	}
	return p, nil
}

// GetPromoImageByURL looks a promo image up by its stored-file URL.
func (d *Database) GetPromoImageByURL(ctx context.Context, imageURL string) (*PromoImage, error) {
	p, err := scanPromo(d.db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_images WHERE image_url = ? LIMIT 1`, imageURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promo_images %s: %w", imageURL, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get promo image by url: %w", err)
	}
	return p, nil
}

const insertPromoImage = `
	INSERT INTO promo_images (
		name, image_url, duration_seconds, transition_effect, order_index, is_active, file_size
	) VALUES (?, ?, ?, ?, ?, ?, ?)
`

// CreatePromoImage stores p, overwriting any row that already holds the same image url.
func (d *Database) CreatePromoImage(ctx context.Context, p PromoImage) (*PromoImage, error) {
	const stmt = insertPromoImage + `
		ON CONFLICT(image_url) DO UPDATE SET
			name = excluded.name,
			duration_seconds = excluded.duration_seconds,
			transition_effect = excluded.transition_effect,
			order_index = excluded.order_index,
			is_active = excluded.is_active,
			file_size = excluded.file_size
		RETURNING id
	`
	var id int64
	err := d.db.QueryRowContext(ctx, stmt,
		p.Name, p.ImageURL, p.DurationSeconds, string(p.TransitionEffect.OrDefault()), p.OrderIndex,
		boolToInt(p.IsActive), p.FileSize,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert promo image: %w", err)
	}
	return d.GetPromoImage(ctx, id)
}

// RegisterPromoImage stores p unless a row already holds its image url. created reports
// whether a row was inserted.
func (d *Database) RegisterPromoImage(ctx context.Context, p PromoImage) (promo *PromoImage, created bool, err error) {
	const stmt = insertPromoImage + `ON CONFLICT(image_url) DO NOTHING RETURNING id`
	var id int64
	err = d.db.QueryRowContext(ctx, stmt,
		p.Name, p.ImageURL, p.DurationSeconds, string(p.TransitionEffect.OrDefault()), p.OrderIndex,
		boolToInt(p.IsActive), p.FileSize,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		promo, err = d.GetPromoImageByURL(ctx, p.ImageURL)
		return promo, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to register promo image: %w", err)
	}
	promo, err = d.GetPromoImage(ctx, id)
	return promo, err == nil, err
}

func (d *Database) UpdatePromoImage(ctx context.Context, id int64, p PromoImagePatch) (*PromoImage, error) {
	u := &update{}
	if p.Name != nil {
		u.set("name", *p.Name)
	}
	if p.DurationSeconds != nil {
		u.set("duration_seconds", *p.DurationSeconds)
	}
	if p.TransitionEffect != nil {
		u.set("transition_effect", string(p.TransitionEffect.OrDefault()))
	}
	if p.OrderIndex != nil {
		u.set("order_index", *p.OrderIndex)
	}
	if p.IsActive != nil {
		u.set("is_active", boolToInt(*p.IsActive))
	}
	if !u.empty() {
		if err := d.execUpdate(ctx, "promo_images", id, u); err != nil {
			return nil, err
		}
	}
	return d.GetPromoImage(ctx, id)
}

func (d *Database) DeletePromoImage(ctx context.Context, id int64) error {
	return d.execDelete(ctx, "promo_images", id)
}

func (d *Database) GetNextPromoOrder(ctx context.Context) (int, error) {
	return d.nextOrder(ctx, "promo_images")
}

const bannerColumns = `id, banner_image_url, banner_height, is_active, created_date`

func scanBanner(row rowScanner) (*BannerSettings, error) {
	var b BannerSettings
	if err := row.Scan(&b.ID, &b.BannerImageURL, &b.BannerHeight, &b.IsActive, &b.CreatedDate); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBannerSettings returns the newest active banner, or nil when none exists.
func (d *Database) GetBannerSettings(ctx context.Context) (*BannerSettings, error) {
	query := `SELECT ` + bannerColumns + ` FROM banner_settings
		WHERE is_active = 1
		ORDER BY created_date DESC, id DESC
		LIMIT 1`
	b, err := scanBanner(d.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get banner settings: %w", err)
	}
	return b, nil
}

// CreateBannerSettings stores a new active banner and deactivates the previous ones.
func (d *Database) CreateBannerSettings(ctx context.Context, b BannerSettings) (*BannerSettings, error) {
	if b.BannerHeight <= 0 {
		b.BannerHeight = DefaultBannerHeight
	}

	var created *BannerSettings
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE banner_settings SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("deactivate banners: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO banner_settings (banner_image_url, banner_height, is_active) VALUES (?, ?, 1)`,
			b.BannerImageURL, b.BannerHeight,
		)
		if err != nil {
			return fmt.Errorf("insert banner: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted id: %w", err)
		}
		created, err = scanBanner(tx.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banner_settings WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("read inserted banner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (d *Database) UpdateBannerSettings(ctx context.Context, id int64, p BannerSettingsPatch) (*BannerSettings, error) {
	u := &update{}
	if p.BannerImageURL != nil {
		u.set("banner_image_url", *p.BannerImageURL)
	}
	if p.BannerHeight != nil {
		u.set("banner_height", *p.BannerHeight)
	}
	if p.IsActive != nil {
		u.set("is_active", boolToInt(*p.IsActive))
	}
	if !u.empty() {
		if err := d.execUpdate(ctx, "banner_settings", id, u); err != nil {
			return nil, err
		}
	}

	b, err := scanBanner(d.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banner_settings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("banner_settings %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get banner settings: %w", err)
	}
	return b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (d *Database) Close() error {
	return d.db.Close()
}
