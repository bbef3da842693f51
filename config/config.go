// Package config holds everything about a run that isn't a credential.
//
// The compiled-in defaults are enough to run. A json5 file can override any
// of them, and a "<name>.local.<ext>" file next to it overrides that, so
// deployment-specific values stay out of the committed file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/fitomusic/artiststats/request"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/fitomusic/artiststats/spotify"
	"github.com/fitomusic/artiststats/store"
	"github.com/titanous/json5"
)

// Environment variables the deployment must provide for the api strategy.
const (
	ClientIDEnv     = "SPOTIFY_CLIENT_ID"
	ClientSecretEnv = "SPOTIFY_CLIENT_SECRET"
)

// DefaultPath is read if it exists; it isn't an error for it not to.
const DefaultPath = "artiststats.json5"

type Config struct {
	ArtistID string `json:"artistId"`
	Out      string `json:"out"`

	UserAgent string `json:"userAgent"`
	PageURL   string `json:"pageUrl"`
	TokenURL  string `json:"tokenUrl"`
	APIURL    string `json:"apiUrl"`

	Policy scrape.Policy `json:"policy"`
}

func Default() Config {
	return Config{
		ArtistID:  "49VK62ooP7k2DFtFg5Q4id",
		Out:       store.DefaultPath,
		UserAgent: request.BrowserUserAgent,
		PageURL:   scrape.PageURL,
		TokenURL:  spotify.TokenURL,
		APIURL:    spotify.APIURL,
		Policy:    scrape.DefaultPolicy(),
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// Read returns the defaults with name and then its .local override merged
// over them. Zero values in a file don't override anything.
func Read(name string) (Config, error) {
	cfg := Default()

	prefix, ext := splitExt(name)
	local := fmt.Sprintf("%s.local.%s", prefix, ext)

	for _, path := range []string{name, local} {
		bs, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return cfg, fmt.Errorf("error reading config '%s': %w", path, err)
		}

		var override Config
		if err := json5.Unmarshal(bs, &override); err != nil {
			return cfg, fmt.Errorf("error parsing config '%s': %w", path, err)
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("error merging config '%s': %w", path, err)
		}
		log.Printf("read config from %s", path)
	}

	return cfg, nil
}
