package api

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aouyang1/ratedisplay/api/client"
	"github.com/aouyang1/ratedisplay/util"
)

// fileRegistry is the server side view of one upload directory.
type fileRegistry interface {
	Kind() string
	// Register reports whether a new row was created for the file.
	Register(ctx context.Context, path string) (bool, error)
	// Registered maps file names under the upload directory to their row ids.
	Registered(ctx context.Context) (map[string]int64, error)
	Deregister(ctx context.Context, id int64) error
}

type mediaRegistry struct {
	dc *client.DisplayClient
}

func (m mediaRegistry) Kind() string { return "media" }

func (m mediaRegistry) Register(ctx context.Context, path string) (bool, error) {
	return m.dc.RegisterMediaIfNotExists(ctx, path)
}

func (m mediaRegistry) Registered(ctx context.Context) (map[string]int64, error) {
	items, err := m.dc.ListMedia(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]int64, len(items))
	for _, item := range items {
		if name, ok := uploadName(mediaURLPrefix, item.FileURL); ok {
			names[name] = item.ID
		}
	}
	return names, nil
}

func (m mediaRegistry) Deregister(ctx context.Context, id int64) error {
	return m.dc.DeleteMedia(ctx, id)
}

// promoRegistry covers one promo folder, the plain promo directory when folder is empty.
type promoRegistry struct {
	dc     *client.DisplayClient
	folder string
}

func (p promoRegistry) Kind() string { return "promo" }

func (p promoRegistry) Register(ctx context.Context, path string) (bool, error) {
	return p.dc.RegisterPromoIfNotExists(ctx, path, p.folder)
}

func (p promoRegistry) Registered(ctx context.Context) (map[string]int64, error) {
	promos, err := p.dc.ListPromos(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]int64, len(promos))
	for _, promo := range promos {
		if name, ok := uploadName(promoURLPrefix(p.folder), promo.ImageURL); ok {
			names[name] = promo.ID
		}
	}
	return names, nil
}

func (p promoRegistry) Deregister(ctx context.Context, id int64) error {
	return p.dc.DeletePromo(ctx, id)
}

// listFiles returns the names of files in dir whose extension is in exts.
func listFiles(dir string, exts mapset.Set[string]) (mapset.Set[string], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !exts.Contains(util.Ext(name)) {
			continue
		}
		files.Add(name)
	}
	return files, nil
}

// reconcileDir registers every file in dir and deregisters rows whose file is gone.
// It reports whether anything changed.
func reconcileDir(ctx context.Context, reg fileRegistry, dir string, files mapset.Set[string]) bool {
	changed := false
	for _, name := range files.ToSlice() {
		created, err := reg.Register(ctx, filepath.Join(dir, name))
		if err != nil {
			slog.Warn("error while registering file", "kind", reg.Kind(), "name", name, "error", err)
			continue
		}
		changed = changed || created
	}

	registered, err := reg.Registered(ctx)
	if err != nil {
		slog.Warn("error getting registered files", "kind", reg.Kind(), "error", err)
		return changed
	}

	var toDeregister []string
	for name := range registered {
		if !files.Contains(name) {
			toDeregister = append(toDeregister, name)
		}
	}
	if len(toDeregister) > 0 {
		slog.Info("deregistering files not present locally", "kind", reg.Kind(), "count", len(toDeregister), "names", toDeregister)
		for _, name := range toDeregister {
			if err := reg.Deregister(ctx, registered[name]); err != nil {
				slog.Warn("error while deregistering file", "kind", reg.Kind(), "name", name, "error", err)
				continue
			}
			changed = true
		}
	}
	return changed
}
