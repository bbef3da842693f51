// Package scrape reads an artist's stats off their public Spotify page,
// without credentials.
//
// The page's structure changes without notice, so everything here is best
// effort: a failed fetch or a field that can't be found is a *SoftFailure,
// which the caller logs and carries on from. Counts that come back
// suspiciously low are replaced with known-good values by Policy.Correct,
// which means a broken scraper shows up as stale numbers rather than as an
// error.
package scrape

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/fitomusic/artiststats/data"
	"github.com/fitomusic/artiststats/pagecache"
	"github.com/fitomusic/artiststats/request"
)

const PageURL = "https://open.spotify.com/artist"

// SoftFailure is a scrape that didn't get everything. It never aborts a run.
type SoftFailure struct {
	Err error
}

func (err *SoftFailure) Error() string { return fmt.Sprintf("scrape failed: %s", err.Err) }

func (err *SoftFailure) Unwrap() error { return err.Err }

// A Guard replaces a count at or below Threshold with Fallback.
type Guard struct {
	Threshold int64 `json:"threshold"`
	Fallback  int64 `json:"fallback"`
}

func (g Guard) correct(name string, n int64) int64 {
	if n <= g.Threshold {
		log.Printf("warning: %s of %d is at or below %d; using last known good value %d", name, n, g.Threshold, g.Fallback)
		return g.Fallback
	}
	return n
}

// Policy is the sanity correction applied to a scraped snapshot. The
// fallbacks are hand-maintained and go stale: keep them roughly current.
type Policy struct {
	MonthlyListeners Guard `json:"monthlyListeners"`
	Followers        Guard `json:"followers"`
	Releases         Guard `json:"releases"`
}

// DefaultPolicy's thresholds are data.Default's placeholder values, so a
// snapshot that has never been successfully scraped is always corrected.
func DefaultPolicy() Policy {
	def := data.Default()
	return Policy{
		MonthlyListeners: Guard{Threshold: def.MonthlyListeners, Fallback: 2_450},
		Followers:        Guard{Threshold: def.Followers, Fallback: 1_180},
		Releases:         Guard{Threshold: def.Releases, Fallback: 14},
	}
}

// Correct applies each field's guard independently.
func (p Policy) Correct(snap data.Snapshot) data.Snapshot {
	snap.MonthlyListeners = p.MonthlyListeners.correct("monthly listeners", snap.MonthlyListeners)
	snap.Followers = p.Followers.correct("followers", snap.Followers)
	snap.Releases = p.Releases.correct("releases", snap.Releases)
	return snap
}

// Source scrapes the public artist page.
type Source struct {
	ArtistID  string
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Policy    Policy

	// Cache, if set, keeps a copy of every page fetched.
	Cache *pagecache.Cache
}

func (src *Source) Name() string { return "scrape" }

func (src *Source) URL() string {
	base := src.BaseURL
	if base == "" {
		base = PageURL
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), src.ArtistID)
}

// Fetch never returns a hard error. Whatever it found is returned alongside
// a *SoftFailure describing what it didn't.
func (src *Source) Fetch(ctx context.Context) (data.Fields, error) {
	url := src.URL()
	userAgent := src.UserAgent
	if userAgent == "" {
		userAgent = request.BrowserUserAgent
	}

	page, err := request.FetchHTML(ctx, src.Client, url, userAgent)
	if err != nil {
		return data.Fields{}, &SoftFailure{Err: err}
	}
	if src.Cache != nil {
		if err := src.Cache.Set(url, page.Body); err != nil {
			log.Printf("warning: couldn't cache page: %s", err)
		}
	}

	ext := Extract(Text(page))
	var missing []string
	if ext.MonthlyListeners.Found() {
		log.Printf("found %d monthly listeners (%s)", ext.MonthlyListeners.Value, ext.MonthlyListeners.Pattern)
	} else {
		missing = append(missing, "monthly listeners")
	}
	if ext.Followers.Found() {
		log.Printf("found %d followers (%s)", ext.Followers.Value, ext.Followers.Pattern)
	} else {
		missing = append(missing, "followers")
	}

	if len(missing) > 0 {
		return ext.Fields(), &SoftFailure{Err: fmt.Errorf("no match for %s on '%s'", strings.Join(missing, " or "), url)}
	}
	return ext.Fields(), nil
}

// Correct is the source's Policy.
func (src *Source) Correct(snap data.Snapshot) data.Snapshot {
	return src.Policy.Correct(snap)
}
