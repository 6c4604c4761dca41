// Package util is a set of utility variables or methods
package util

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Extensions are compared lower-cased.
var (
	ImageExt  = mapset.NewSet(".jpeg", ".jpg", ".png", ".gif")
	VideoExt  = mapset.NewSet(".mp4", ".avi", ".mov")
	BannerExt = mapset.NewSet(".jpeg", ".jpg", ".png")
	MediaExt  = ImageExt.Union(VideoExt)
)

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsVideo reports whether name carries a supported video extension.
func IsVideo(name string) bool {
	return VideoExt.Contains(Ext(name))
}

// DirSize sums the size of every regular file under root. A missing root counts as empty.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
