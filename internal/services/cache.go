package services

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qsr-dashboard/internal/models"
)

const cacheVersion = "v3"

// Dataset is the melted sales sheet, as held in memory and in the cache.
type Dataset struct {
	Source       string
	Sheet        string
	Observations []models.Observation
	Products     []string
	Skipped      int
	LoadedAt     time.Time
}

type datasetCache struct {
	dir string
}

// filename keys the cache by source path and worksheet. An empty sheet is the
// workbook's first worksheet.
func (c datasetCache) filename(source, sheet string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	if sheet == "" {
		sheet = "default"
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(abs + "_" + sheet)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (c datasetCache) save(ds *Dataset) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	// Encoded to a temp file and renamed into place.
	target := c.filename(ds.Source, ds.Sheet)
	tmp, err := os.CreateTemp(c.dir, filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(ds); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// load returns the cached dataset for the source worksheet when it is newer
// than the source file itself.
func (c datasetCache) load(source, sheet string) (*Dataset, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(c.filename(source, sheet))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ds Dataset
	if err := gob.NewDecoder(file).Decode(&ds); err != nil {
		return nil, err
	}
	if ds.Sheet != sheet {
		return nil, fmt.Errorf("cache for %s holds sheet %q, want %q", source, ds.Sheet, sheet)
	}
	if !info.ModTime().Before(ds.LoadedAt) {
		return nil, fmt.Errorf("cache for %s is stale", source)
	}
	return &ds, nil
}
