// Package pagecache keeps copies of fetched pages on disk, keyed by URL, so
// the extractors can be rerun against exactly what the scraper saw.
package pagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func New(dir string) *Cache {
	return &Cache{dir: dir, prefix: "page-"}
}

type Cache struct {
	dir, prefix string
}

var ErrMiss = errors.New("cache miss")

// Get returns the last copy stored for url.
func (c *Cache) Get(url string) ([]byte, error) {
	hash, filename := c.hashAndFilename(url)

	bs, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cache miss for '%s' (%s): %w", url, hash, ErrMiss)
	} else if err != nil {
		return nil, fmt.Errorf("error reading cache file '%s': %w", hash, err)
	}

	return bs, nil
}

// Set replaces the stored copy for url.
func (c *Cache) Set(url string, body []byte) error {
	hash, filename := c.hashAndFilename(url)

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("error creating cache dir '%s': %w", c.dir, err)
	}
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return fmt.Errorf("error writing cache file '%s': %w", hash, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("error writing cache file '%s': %w", hash, err)
	}

	return nil
}

func (c *Cache) hashAndFilename(key string) (string, string) {
	var hasher = sha256.New()
	hasher.Write([]byte(key))
	hash := hex.EncodeToString(hasher.Sum(nil))
	return hash, filepath.Join(c.dir, c.prefix+hash+".html")
}
