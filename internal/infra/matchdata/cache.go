package matchdata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	cacheFilePrefix = "matches_"
	cacheFileSuffix = ".json"

	// DefaultCacheRetention is the number of per-day cache files kept on disk.
	DefaultCacheRetention = 7
)

// FileCache stores one raw upstream payload per date.
type FileCache struct {
	dir    string
	keep   int
	logger *logrus.Entry
}

func NewFileCache(dir string, keep int, logger *logrus.Entry) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if keep <= 0 {
		keep = DefaultCacheRetention
	}
	return &FileCache{dir: dir, keep: keep, logger: logger}, nil
}

// Key is the cache key of a date: its calendar day in the date's location.
func Key(date time.Time) string {
	return date.Format("2006-01-02")
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, cacheFilePrefix+key+cacheFileSuffix)
}

// Load returns the cached payload for key. ok is false if no file exists.
func (c *FileCache) Load(key string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Store writes the payload atomically.
func (c *FileCache) Store(key string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-"+cacheFilePrefix)
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func (c *FileCache) Remove(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune keeps the most recently modified files and deletes the rest.
// Failures are logged and never returned.
func (c *FileCache) Prune() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list match cache")
		return
	}

	type cached struct {
		name    string
		modTime time.Time
	}
	files := make([]cached, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cacheFilePrefix) || !strings.HasSuffix(name, cacheFileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			c.logger.WithError(err).WithField("file", name).Warn("Failed to stat cache file")
			continue
		}
		files = append(files, cached{name: name, modTime: info.ModTime()})
	}
	if len(files) <= c.keep {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].name > files[j].name
		}
		return files[i].modTime.After(files[j].modTime)
	})
	for _, f := range files[c.keep:] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			c.logger.WithError(err).WithField("file", f.name).Warn("Failed to delete old cache file")
			continue
		}
		c.logger.WithField("file", f.name).Debug("Deleted old cache file")
	}
}
