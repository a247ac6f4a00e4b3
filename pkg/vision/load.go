package vision

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadReferenceImages decodes every PNG/JPEG in dir in lexical filename order.
// Files that fail to decode leave a nil slot so later indices stay aligned.
func LoadReferenceImages(dir string) ([]image.Image, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reference dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	imgs := make([]image.Image, len(names))
	for i, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("Skipping unreadable reference image", "file", name, "error", err)
			continue
		}
		imgs[i] = img
	}
	return imgs, names, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
