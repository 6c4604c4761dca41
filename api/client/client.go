package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aouyang1/ratedisplay/api/models"
	"github.com/aouyang1/ratedisplay/store"
)

const defaultTimeout = 30 * time.Second

// DisplayClient talks to the display web server. It is used by the background file
// managers to register content and by remote displays as a rotation source.
type DisplayClient struct {
	baseURL string
	client  *http.Client
}

func NewDisplayClient(baseURL string) *DisplayClient {
	return &DisplayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// do sends the request and decodes a 2xx body into out when out is non-nil.
func (dc *DisplayClient) do(ctx context.Context, method, path string, reqBody any, out any) (int, error) {
	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, dc.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := dc.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return resp.StatusCode, fmt.Errorf("server error: %s", errResp.Error)
		}
		return resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// FetchCurrentRate returns nil when the server has no active rate snapshot.
func (dc *DisplayClient) FetchCurrentRate(ctx context.Context) (*store.RateSnapshot, error) {
	var rates *store.RateSnapshot
	if _, err := dc.do(ctx, http.MethodGet, "/api/rates/current", nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

func (dc *DisplayClient) FetchDisplaySettings(ctx context.Context) (*store.DisplaySettings, error) {
	var settings store.DisplaySettings
	if _, err := dc.do(ctx, http.MethodGet, "/api/settings/display", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (dc *DisplayClient) FetchActiveMedia(ctx context.Context) ([]store.MediaItem, error) {
	return dc.ListMedia(ctx, true)
}

func (dc *DisplayClient) FetchActivePromos(ctx context.Context) ([]store.PromoImage, error) {
	return dc.ListPromos(ctx, true)
}

func (dc *DisplayClient) FetchBannerSettings(ctx context.Context) (*store.BannerSettings, error) {
	var banner *store.BannerSettings
	if _, err := dc.do(ctx, http.MethodGet, "/api/banner", nil, &banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (dc *DisplayClient) ListMedia(ctx context.Context, activeOnly bool) ([]store.MediaItem, error) {
	var items []store.MediaItem
	if _, err := dc.do(ctx, http.MethodGet, listPath("/api/media", activeOnly), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (dc *DisplayClient) ListPromos(ctx context.Context, activeOnly bool) ([]store.PromoImage, error) {
	var promos []store.PromoImage
	if _, err := dc.do(ctx, http.MethodGet, listPath("/api/promo", activeOnly), nil, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

func listPath(path string, activeOnly bool) string {
	if activeOnly {
		return path + "?active=true"
	}
	return path
}

// RegisterMedia registers a file already present in the media upload directory.
func (dc *DisplayClient) RegisterMedia(ctx context.Context, filePath string) (*models.RegisterFileResponse, error) {
	return dc.register(ctx, "/api/media/register", filePath, "")
}

// RegisterPromo registers a file already present in the promo upload directory, or in
// one of its named folders when folder is set.
func (dc *DisplayClient) RegisterPromo(ctx context.Context, filePath, folder string) (*models.RegisterFileResponse, error) {
	return dc.register(ctx, "/api/promo/register", filePath, folder)
}

func (dc *DisplayClient) register(ctx context.Context, path, filePath, folder string) (*models.RegisterFileResponse, error) {
	fileName := filepath.Base(filePath)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	var registerResp models.RegisterFileResponse
	if _, err := dc.do(ctx, http.MethodPost, path, models.RegisterFileRequest{FileName: fileName, Folder: folder}, &registerResp); err != nil {
		return nil, err
	}
	return &registerResp, nil
}

// RegisterMediaIfNotExists registers a media file and reports whether a new row was created.
func (dc *DisplayClient) RegisterMediaIfNotExists(ctx context.Context, filePath string) (bool, error) {
	resp, err := dc.RegisterMedia(ctx, filePath)
	if err != nil {
		return false, err
	}
	if !resp.Created {
		slog.Debug("media already registered, skipping", "path", filePath)
		return false, nil
	}
	slog.Info("media registered successfully", "name", resp.FileName, "id", resp.ID)
	return true, nil
}

// RegisterPromoIfNotExists registers a promo file and reports whether a new row was created.
func (dc *DisplayClient) RegisterPromoIfNotExists(ctx context.Context, filePath, folder string) (bool, error) {
	resp, err := dc.RegisterPromo(ctx, filePath, folder)
	if err != nil {
		return false, err
	}
	if !resp.Created {
		slog.Debug("promo already registered, skipping", "path", filePath)
		return false, nil
	}
	slog.Info("promo registered successfully", "name", resp.FileName, "id", resp.ID)
	return true, nil
}

// DeleteMedia removes a media row and its file. A missing row is not an error.
func (dc *DisplayClient) DeleteMedia(ctx context.Context, id int64) error {
	return dc.delete(ctx, fmt.Sprintf("/api/media/%d", id))
}

// DeletePromo removes a promo row and its file. A missing row is not an error.
func (dc *DisplayClient) DeletePromo(ctx context.Context, id int64) error {
	return dc.delete(ctx, fmt.Sprintf("/api/promo/%d", id))
}

func (dc *DisplayClient) delete(ctx context.Context, path string) error {
	status, err := dc.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	return nil
}
