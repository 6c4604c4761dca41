// Package api is the main api web server
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aouyang1/ratedisplay/api/client"
	"github.com/aouyang1/ratedisplay/api/models"
	"github.com/aouyang1/ratedisplay/config"
	"github.com/aouyang1/ratedisplay/rotation"
	"github.com/aouyang1/ratedisplay/store"
	"github.com/aouyang1/ratedisplay/util"
)

const (
	mediaURLPrefix  = "/uploads/media/"
	bannerURLPrefix = "/uploads/banner/"

	shutdownTimeout = 5 * time.Second
)

func promoURLPrefix(folder string) string {
	if folder == "" {
		return "/uploads/promo/"
	}
	return "/uploads/promo/" + folder + "/"
}

func uploadURL(prefix, name string) string {
	return prefix + url.PathEscape(name)
}

// uploadName extracts the file name from a stored-file URL directly under prefix.
func uploadName(prefix, fileURL string) (string, bool) {
	rest, ok := strings.CutPrefix(fileURL, prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return name, true
}

type WebServer struct {
	router     *gin.Engine
	db         *store.Database
	runner     *rotation.Runner
	listenAddr string

	uploadsDir string
	mediaDir   string
	promoDir   string
	bannerDir  string

	localManager  *LocalManager
	remoteManager *RemoteManager

	Updated chan bool
}

// NewWebServer builds the full server: the management api, the TV page and the
// background file managers.
func NewWebServer(db *store.Database, runner *rotation.Runner, cfg *config.Config) (*WebServer, error) {
	if db == nil {
		return nil, errors.New("no database provided for web server")
	}
	if runner == nil {
		return nil, errors.New("no runner provided for web server")
	}

	uploadsDir := filepath.Join(cfg.RootPath, "uploads")
	ws := &WebServer{
		router:     gin.Default(),
		db:         db,
		runner:     runner,
		listenAddr: cfg.ListenAddr,
		uploadsDir: uploadsDir,
		mediaDir:   filepath.Join(uploadsDir, "media"),
		promoDir:   filepath.Join(uploadsDir, "promo"),
		bannerDir:  filepath.Join(uploadsDir, "banner"),
		Updated:    make(chan bool, 1),
	}
	for _, dir := range []string{ws.mediaDir, ws.promoDir, ws.bannerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	displayClient := client.NewDisplayClient(cfg.WebServerURL)
	localManager, err := NewLocalManager(ws.mediaDir, displayClient, cfg.LocalScanInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local manager: %w", err)
	}
	ws.localManager = localManager

	if cfg.RemoteEnabled() {
		remoteManager, err := NewRemoteManager(RemoteOptions{
			Profile:  cfg.AWSProfile,
			Bucket:   cfg.S3Bucket,
			PromoDir: ws.promoDir,
			Interval: cfg.RemoteSyncInterval,
			Timeout:  cfg.RemoteSyncTimeout,
		}, displayClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize remote manager: %w", err)
		}
		ws.remoteManager = remoteManager
	}

	// Setup routes
	ws.setupRoutes()

	return ws, nil
}

// NewDisplayServer serves only the TV page and directive for a display whose runner
// polls a remote management server.
func NewDisplayServer(runner *rotation.Runner, listenAddr string) *WebServer {
	ws := &WebServer{
		router:     gin.Default(),
		runner:     runner,
		listenAddr: listenAddr,
		Updated:    make(chan bool, 1),
	}
	ws.setupRoutes()
	return ws
}

func (ws *WebServer) setupRoutes() {
	ws.router.Use(cors.Default())

	ws.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/tv")
	})
	ws.router.GET("/tv", ws.handleTV)
	ws.router.GET("/tv/frame", ws.handleTVFrame)
	ws.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := ws.router.Group("/api")
	api.GET("/display/directive", ws.handleGetDirective)

	if ws.db == nil {
		return
	}

	ws.router.Static("/uploads", ws.uploadsDir)

	api.GET("/rates/current", ws.handleGetCurrentRates)
	api.POST("/rates", ws.handleCreateRates)
	api.GET("/rates/history", ws.handleListRates)

	api.GET("/settings/display", ws.handleGetDisplaySettings)
	api.PUT("/settings/display/:id", ws.handleUpdateDisplaySettings)

	api.GET("/media", ws.handleListMedia)
	api.POST("/media/upload", ws.handleUploadMedia)
	api.POST("/media/register", ws.handleRegisterMedia)
	api.PUT("/media/:id", ws.handleUpdateMedia)
	api.DELETE("/media/:id", ws.handleDeleteMedia)

	api.GET("/promo", ws.handleListPromos)
	api.POST("/promo/upload", ws.handleUploadPromos)
	api.POST("/promo/register", ws.handleRegisterPromo)
	api.PUT("/promo/:id", ws.handleUpdatePromo)
	api.DELETE("/promo/:id", ws.handleDeletePromo)

	api.GET("/banner", ws.handleGetBanner)
	api.POST("/banner/upload", ws.handleUploadBanner)
	api.PUT("/banner/:id", ws.handleUpdateBanner)

	api.GET("/system/info", ws.handleSystemInfo)
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start runs the background managers and serves until ctx is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ws.listenAddr,
		Handler: ws.router,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting web server", "addr", ws.listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	// managers register files through the api, so they start after the listener
	var localUpdated, remoteUpdated chan bool
	if ws.localManager != nil {
		localUpdated = ws.localManager.Updated
		go ws.localManager.Run(ctx)
	}
	if ws.remoteManager != nil {
		remoteUpdated = ws.remoteManager.Updated
		go ws.remoteManager.Run(ctx)
	}

	// listen for updates and have the display pick them up now
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ws.Updated:
			case <-localUpdated:
			case <-remoteUpdated:
			}
			slog.Debug("found new updates, refreshing display")
			ws.runner.Refresh()
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}

// notifyUpdated asks the display to re-poll without waiting for its interval.
func (ws *WebServer) notifyUpdated() {
	select {
	case ws.Updated <- true:
	default:
		// update already pending
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid id: %s", c.Param("id"))})
		return 0, false
	}
	return id, true
}

// writeStoreError maps ErrNotFound to 404 and anything else to 500.
func writeStoreError(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: what + " not found"})
		return
	}
	slog.Error("database error", "resource", what, "error", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
}

func (ws *WebServer) handleGetCurrentRates(c *gin.Context) {
	rates, err := ws.db.GetCurrentRates(c.Request.Context())
	if err != nil {
		writeStoreError(c, "rates", err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

func (ws *WebServer) handleCreateRates(c *gin.Context) {
	var req models.CreateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	snapshot, err := req.Snapshot()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	rates, err := ws.db.CreateRates(c.Request.Context(), snapshot)
	if err != nil {
		writeStoreError(c, "rates", err)
		return
	}
	slog.Info("rates updated", "id", rates.ID, "gold_24k_sale", rates.Gold24kSale.String())
	ws.notifyUpdated()
	c.JSON(http.StatusCreated, rates)
}

func (ws *WebServer) handleListRates(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > 100 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = l
	}

	rates, err := ws.db.ListRates(c.Request.Context(), limit)
	if err != nil {
		writeStoreError(c, "rates", err)
		return
	}
	if rates == nil {
		rates = []store.RateSnapshot{}
	}
	c.JSON(http.StatusOK, rates)
}

func (ws *WebServer) handleGetDisplaySettings(c *gin.Context) {
	settings, err := ws.db.GetDisplaySettings(c.Request.Context())
	if err != nil {
		writeStoreError(c, "display settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func validateSettingsPatch(p store.DisplaySettingsPatch) error {
	if p.Orientation != nil && *p.Orientation != store.OrientationHorizontal && *p.Orientation != store.OrientationVertical {
		return fmt.Errorf("orientation must be %q or %q", store.OrientationHorizontal, store.OrientationVertical)
	}
	if p.RatesDisplayDuration != nil && (*p.RatesDisplayDuration < 1 || *p.RatesDisplayDuration > store.MaxDurationSeconds) {
		return fmt.Errorf("rates_display_duration must be between 1 and %d seconds", store.MaxDurationSeconds)
	}
	if p.RefreshInterval != nil && (*p.RefreshInterval < 1 || *p.RefreshInterval > store.MaxDurationSeconds) {
		return fmt.Errorf("refresh_interval must be between 1 and %d seconds", store.MaxDurationSeconds)
	}
	if p.BackgroundColor != nil && !validColor(*p.BackgroundColor) {
		return fmt.Errorf("background_color must be a hex or named colour, got %q", *p.BackgroundColor)
	}
	if p.TextColor != nil && !validColor(*p.TextColor) {
		return fmt.Errorf("text_color must be a hex or named colour, got %q", *p.TextColor)
	}
	return nil
}

// colorPattern accepts #rgb, #rgba, #rrggbb and #rrggbbaa hex colours or a bare css keyword.
var colorPattern = regexp.MustCompile(`^(#([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|[a-zA-Z]{3,20})$`)

// validColor keeps settings colours safe to place in a style attribute.
func validColor(s string) bool {
	return colorPattern.MatchString(s)
}

func (ws *WebServer) handleUpdateDisplaySettings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch store.DisplaySettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if err := validateSettingsPatch(patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	settings, err := ws.db.UpdateDisplaySettings(c.Request.Context(), id, patch)
	if err != nil {
		writeStoreError(c, "display settings", err)
		return
	}
	ws.notifyUpdated()
	c.JSON(http.StatusOK, settings)
}

func (ws *WebServer) handleGetBanner(c *gin.Context) {
	banner, err := ws.db.GetBannerSettings(c.Request.Context())
	if err != nil {
		writeStoreError(c, "banner", err)
		return
	}
	c.JSON(http.StatusOK, banner)
}

func (ws *WebServer) handleUpdateBanner(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch store.BannerSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if patch.BannerHeight != nil && *patch.BannerHeight < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "banner_height must be positive"})
		return
	}

	banner, err := ws.db.UpdateBannerSettings(c.Request.Context(), id, patch)
	if err != nil {
		writeStoreError(c, "banner", err)
		return
	}
	ws.notifyUpdated()
	c.JSON(http.StatusOK, banner)
}

func (ws *WebServer) handleSystemInfo(c *gin.Context) {
	ctx := c.Request.Context()

	used, err := util.DirSize(ws.uploadsDir)
	if err != nil {
		slog.Warn("unable to measure upload storage", "error", err)
	}
	media, err := ws.db.ListMediaItems(ctx, false)
	if err != nil {
		writeStoreError(c, "media", err)
		return
	}
	promos, err := ws.db.ListPromoImages(ctx, false)
	if err != nil {
		writeStoreError(c, "promo", err)
		return
	}

	info := models.SystemInfoResponse{
		Status:           "online",
		ListenAddr:       ws.listenAddr,
		StorageUsedBytes: used,
		MediaCount:       len(media),
		PromoCount:       len(promos),
		DisplayMode:      string(ws.runner.Engine().Directive().Mode),
	}
	if lastPoll := ws.runner.LastPoll(); !lastPoll.IsZero() {
		info.LastSync = lastPoll.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, info)
}
