package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aouyang1/ratedisplay/api/models"
	"github.com/aouyang1/ratedisplay/store"
	"github.com/aouyang1/ratedisplay/util"
)

const (
	maxUploadFiles = 10
	multipartSlack = 1 << 20

	maxMediaBytes  = 50 << 20
	maxPromoBytes  = 10 << 20
	maxBannerBytes = 5 << 20
)

type uploadRule struct {
	field    string
	maxFiles int
	maxBytes int64
	exts     mapset.Set[string]
	dir      string
}

type savedFile struct {
	original string
	name     string
	path     string
	size     int64
	mimeType string
}

// saveUploads validates every file of the multipart field before storing any of them
// under a random name. On failure it has already written the error response.
func saveUploads(c *gin.Context, rule uploadRule) ([]savedFile, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, rule.maxBytes*int64(rule.maxFiles)+multipartSlack)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "Upload too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid multipart form: %v", err)})
		return nil, false
	}

	files := form.File[rule.field]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No files uploaded"})
		return nil, false
	}
	if len(files) > rule.maxFiles {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("At most %d files per upload", rule.maxFiles)})
		return nil, false
	}

	for _, file := range files {
		if err := checkUpload(file, rule); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return nil, false
		}
	}

	saved := make([]savedFile, 0, len(files))
	for _, file := range files {
		ext := util.Ext(file.Filename)
		name := uuid.NewString() + ext
		path := filepath.Join(rule.dir, name)
		if err := c.SaveUploadedFile(file, path); err != nil {
			removeSaved(saved)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to save file: %v", err)})
			return nil, false
		}
		saved = append(saved, savedFile{
			original: file.Filename,
			name:     name,
			path:     path,
			size:     file.Size,
			mimeType: file.Header.Get("Content-Type"),
		})
	}
	return saved, true
}

func checkUpload(file *multipart.FileHeader, rule uploadRule) error {
	ext := util.Ext(file.Filename)
	if !rule.exts.Contains(ext) {
		return fmt.Errorf("unsupported file extension: %q", ext)
	}
	if file.Size > rule.maxBytes {
		return fmt.Errorf("file %s exceeds the %d MB limit", file.Filename, rule.maxBytes>>20)
	}
	return nil
}

func removeSaved(saved []savedFile) {
	for _, f := range saved {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("unable to remove uploaded file", "path", f.path, "error", err)
		}
	}
}

// removeStoredFile deletes the file behind a stored-file URL. Files outside the upload
// directory are left alone.
func (ws *WebServer) removeStoredFile(fileURL string) {
	rel, ok := strings.CutPrefix(fileURL, "/uploads/")
	if !ok {
		return
	}
	rel, err := url.PathUnescape(rel)
	if err != nil {
		return
	}
	path := filepath.Join(ws.uploadsDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, ws.uploadsDir+string(filepath.Separator)) {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("unable to remove stored file", "path", path, "error", err)
	}
}

// formSeconds parses a positive duration field, falling back when it is missing or invalid.
func formSeconds(c *gin.Context, field string, fallback int) int {
	seconds, err := strconv.Atoi(c.PostForm(field))
	if err != nil || seconds < 1 || seconds > store.MaxDurationSeconds {
		return fallback
	}
	return seconds
}

func validateOrdering(duration, order *int) error {
	if duration != nil && (*duration < 1 || *duration > store.MaxDurationSeconds) {
		return fmt.Errorf("duration_seconds must be between 1 and %d", store.MaxDurationSeconds)
	}
	if order != nil && *order < 0 {
		return errors.New("order_index must not be negative")
	}
	return nil
}

func (ws *WebServer) handleListMedia(c *gin.Context) {
	items, err := ws.db.ListMediaItems(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		writeStoreError(c, "media", err)
		return
	}
	if items == nil {
		items = []store.MediaItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (ws *WebServer) handleUploadMedia(c *gin.Context) {
	ctx := c.Request.Context()
	saved, ok := saveUploads(c, uploadRule{
		field:    "files",
		maxFiles: maxUploadFiles,
		maxBytes: maxMediaBytes,
		exts:     util.MediaExt,
		dir:      ws.mediaDir,
	})
	if !ok {
		return
	}

	duration := formSeconds(c, "duration", store.DefaultMediaSeconds)
	active := c.PostForm("autoActivate") == "true"

	created := make([]store.MediaItem, 0, len(saved))
	for i, f := range saved {
		order, err := ws.db.GetNextMediaOrder(ctx)
		if err == nil {
			var item *store.MediaItem
			item, err = ws.db.CreateMediaItem(ctx, store.MediaItem{
				Name:            f.original,
				FileURL:         uploadURL(mediaURLPrefix, f.name),
				MediaType:       mediaType(f.name),
				DurationSeconds: duration,
				OrderIndex:      order,
				IsActive:        active,
				FileSize:        f.size,
				MimeType:        f.mimeType,
			})
			if err == nil {
				created = append(created, *item)
				continue
			}
		}
		// files without a row are removed, rows already created stay
		removeSaved(saved[i:])
		writeStoreError(c, "media", err)
		return
	}

	slog.Info("media uploaded", "count", len(created), "active", active)
	ws.notifyUpdated()
	c.JSON(http.StatusCreated, created)
}

func mediaType(name string) store.MediaType {
	if util.IsVideo(name) {
		return store.MediaTypeVideo
	}
	return store.MediaTypeImage
}

func (ws *WebServer) handleRegisterMedia(c *gin.Context) {
	var req models.RegisterFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if req.Folder != "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "media has no folders"})
		return
	}
	info, ok := ws.checkRegistration(c, req, ws.mediaDir, util.MediaExt)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	fileURL := uploadURL(mediaURLPrefix, req.FileName)
	order, err := ws.db.GetNextMediaOrder(ctx)
	if err != nil {
		writeStoreError(c, "media", err)
		return
	}
	item, created, err := ws.db.RegisterMediaItem(ctx, store.MediaItem{
		Name:            req.FileName,
		FileURL:         fileURL,
		MediaType:       mediaType(req.FileName),
		DurationSeconds: store.DefaultMediaSeconds,
		OrderIndex:      order,
		IsActive:        req.Active == nil || *req.Active,
		FileSize:        info.Size(),
	})
	if err != nil {
		writeStoreError(c, "media", err)
		return
	}

	resp := models.RegisterFileResponse{
		FileName: req.FileName,
		ID:       item.ID,
		Created:  created,
		Message:  "Media already registered",
	}
	if created {
		resp.Message = "Media registered successfully"
		ws.notifyUpdated()
	}
	c.JSON(http.StatusOK, resp)
}

// checkRegistration validates a register request against the file on disk.
func (ws *WebServer) checkRegistration(c *gin.Context, req models.RegisterFileRequest, dir string, exts mapset.Set[string]) (os.FileInfo, bool) {
	if req.FileName == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file_name is required"})
		return nil, false
	}
	if req.FileName != filepath.Base(req.FileName) || strings.HasPrefix(req.FileName, ".") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid file name: %s", req.FileName)})
		return nil, false
	}
	if ext := util.Ext(req.FileName); !exts.Contains(ext) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Unsupported file extension: %q", ext)})
		return nil, false
	}

	info, err := os.Stat(filepath.Join(dir, req.FileName))
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("File does not exist: %s", req.FileName)})
		return nil, false
	}
	return info, true
}

func (ws *WebServer) handleUpdateMedia(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch store.MediaItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if err := validateOrdering(patch.DurationSeconds, patch.OrderIndex); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	item, err := ws.db.UpdateMediaItem(c.Request.Context(), id, patch)
	if err != nil {
		writeStoreError(c, "media item", err)
		return
	}
	ws.notifyUpdated()
	c.JSON(http.StatusOK, item)
}

func (ws *WebServer) handleDeleteMedia(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := ws.db.GetMediaItem(ctx, id)
	if err != nil {
		writeStoreError(c, "media item", err)
		return
	}
	if err := ws.db.DeleteMediaItem(ctx, id); err != nil {
		writeStoreError(c, "media item", err)
		return
	}
	ws.removeStoredFile(item.FileURL)

	ws.notifyUpdated()
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Media item deleted successfully"})
}

func (ws *WebServer) handleListPromos(c *gin.Context) {
	promos, err := ws.db.ListPromoImages(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		writeStoreError(c, "promo", err)
		return
	}
	if promos == nil {
		promos = []store.PromoImage{}
	}
	c.JSON(http.StatusOK, promos)
}

// parseTransition treats a missing effect as fade and rejects unknown ones.
func parseTransition(value string) (store.TransitionEffect, error) {
	if value == "" {
		return store.TransitionFade, nil
	}
	effect := store.TransitionEffect(value)
	if !effect.Valid() {
		return "", fmt.Errorf("unknown transition effect: %q", value)
	}
	return effect, nil
}

func (ws *WebServer) handleUploadPromos(c *gin.Context) {
	ctx := c.Request.Context()
	saved, ok := saveUploads(c, uploadRule{
		field:    "files",
		maxFiles: maxUploadFiles,
		maxBytes: maxPromoBytes,
		exts:     util.ImageExt,
		dir:      ws.promoDir,
	})
	if !ok {
		return
	}

	transition, err := parseTransition(c.PostForm("transition"))
	if err != nil {
		removeSaved(saved)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	duration := formSeconds(c, "duration", store.DefaultPromoSeconds)
	active := c.PostForm("autoActivate") == "true"

	created := make([]store.PromoImage, 0, len(saved))
	for i, f := range saved {
		order, err := ws.db.GetNextPromoOrder(ctx)
		if err == nil {
			var promo *store.PromoImage
			promo, err = ws.db.CreatePromoImage(ctx, store.PromoImage{
				Name:             f.original,
				ImageURL:         uploadURL(promoURLPrefix(""), f.name),
				DurationSeconds:  duration,
				TransitionEffect: transition,
				OrderIndex:       order,
				IsActive:         active,
				FileSize:         f.size,
			})
			if err == nil {
				created = append(created, *promo)
				continue
			}
		}
		removeSaved(saved[i:])
		writeStoreError(c, "promo", err)
		return
	}

	slog.Info("promo images uploaded", "count", len(created), "active", active, "transition", transition)
	ws.notifyUpdated()
	c.JSON(http.StatusCreated, created)
}

func (ws *WebServer) handleRegisterPromo(c *gin.Context) {
	var req models.RegisterFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if req.Folder != "" && req.Folder != remotePromoFolder {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Unknown promo folder: %q", req.Folder)})
		return
	}
	info, ok := ws.checkRegistration(c, req, filepath.Join(ws.promoDir, req.Folder), util.ImageExt)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	imageURL := uploadURL(promoURLPrefix(req.Folder), req.FileName)
	order, err := ws.db.GetNextPromoOrder(ctx)
	if err != nil {
		writeStoreError(c, "promo", err)
		return
	}
	promo, created, err := ws.db.RegisterPromoImage(ctx, store.PromoImage{
		Name:             req.FileName,
		ImageURL:         imageURL,
		DurationSeconds:  store.DefaultPromoSeconds,
		TransitionEffect: store.TransitionFade,
		OrderIndex:       order,
		IsActive:         req.Active == nil || *req.Active,
		FileSize:         info.Size(),
	})
	if err != nil {
		writeStoreError(c, "promo", err)
		return
	}

	resp := models.RegisterFileResponse{
		FileName: req.FileName,
		ID:       promo.ID,
		Created:  created,
		Message:  "Promo image already registered",
	}
	if created {
		resp.Message = "Promo image registered successfully"
		ws.notifyUpdated()
	}
	c.JSON(http.StatusOK, resp)
}

func (ws *WebServer) handleUpdatePromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch store.PromoImagePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if err := validateOrdering(patch.DurationSeconds, patch.OrderIndex); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if patch.TransitionEffect != nil && !patch.TransitionEffect.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Unknown transition effect: %q", *patch.TransitionEffect)})
		return
	}

	promo, err := ws.db.UpdatePromoImage(c.Request.Context(), id, patch)
	if err != nil {
		writeStoreError(c, "promo image", err)
		return
	}
	ws.notifyUpdated()
	c.JSON(http.StatusOK, promo)
}

func (ws *WebServer) handleDeletePromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	promo, err := ws.db.GetPromoImage(ctx, id)
	if err != nil {
		writeStoreError(c, "promo image", err)
		return
	}
	if err := ws.db.DeletePromoImage(ctx, id); err != nil {
		writeStoreError(c, "promo image", err)
		return
	}
	ws.removeStoredFile(promo.ImageURL)

	ws.notifyUpdated()
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Promo image deleted successfully"})
}

func (ws *WebServer) handleUploadBanner(c *gin.Context) {
	saved, ok := saveUploads(c, uploadRule{
		field:    "banner",
		maxFiles: 1,
		maxBytes: maxBannerBytes,
		exts:     util.BannerExt,
		dir:      ws.bannerDir,
	})
	if !ok {
		return
	}

	height := store.DefaultBannerHeight
	if heightStr := c.PostForm("height"); heightStr != "" {
		h, err := strconv.Atoi(heightStr)
		if err != nil || h < 1 {
			removeSaved(saved)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "height must be a positive integer"})
			return
		}
		height = h
	}

	bannerURL := uploadURL(bannerURLPrefix, saved[0].name)
	banner, err := ws.db.CreateBannerSettings(c.Request.Context(), store.BannerSettings{
		BannerImageURL: bannerURL,
		BannerHeight:   height,
	})
	if err != nil {
		removeSaved(saved)
		writeStoreError(c, "banner", err)
		return
	}

	ws.notifyUpdated()
	c.JSON(http.StatusCreated, models.BannerUploadResponse{
		BannerImageURL: bannerURL,
		Banner:         banner,
		Message:        "Banner uploaded successfully",
	})
}
