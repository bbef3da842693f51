package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fitomusic/artiststats/data"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/fitomusic/artiststats/spotify"
	"github.com/fitomusic/artiststats/store"
)

// A Source fetches the artist's current stats. Fields it couldn't get are
// left nil.
//
// A *scrape.SoftFailure from Fetch is logged and the run goes on with
// whatever fields came back. Any other error ends the run before anything is
// written.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (data.Fields, error)
}

// A Corrector is a Source that second-guesses its own results once they've
// been merged into the previous snapshot.
type Corrector interface {
	Correct(data.Snapshot) data.Snapshot
}

const (
	StrategyAuto   = "auto"
	StrategyAPI    = "api"
	StrategyScrape = "scrape"
)

// Select picks a source by strategy name. "auto" uses the API when the
// client has credentials, and scrapes otherwise.
func Select(strategy string, api *spotify.Source, scraper *scrape.Source) (Source, error) {
	switch strategy {
	case StrategyAPI:
		return api, nil
	case StrategyScrape:
		return scraper, nil
	case StrategyAuto, "":
		if api.Client.HasCredentials() {
			return api, nil
		}
		log.Printf("no spotify credentials; scraping the public artist page instead")
		return scraper, nil
	default:
		return nil, fmt.Errorf("unsupported strategy '%s'", strategy)
	}
}

// Fetcher runs a source once and writes the result over the snapshot file.
type Fetcher struct {
	src  Source
	path string
	now  func() time.Time
}

func New(src Source, path string) *Fetcher {
	return &Fetcher{
		src:  src,
		path: path,
		now:  time.Now,
	}
}

// WithClock replaces time.Now as the source of LastUpdated.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Run loads the previous snapshot, fetches, merges, stamps, and saves. It
// returns the snapshot it wrote.
func (f *Fetcher) Run(ctx context.Context) (data.Snapshot, error) {
	prev := store.Load(f.path)

	log.Printf("fetching stats (%s)", f.src.Name())
	fields, err := f.src.Fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return prev, ctxErr
	}
	var soft *scrape.SoftFailure
	if errors.As(err, &soft) {
		log.Printf("warning: %s; keeping previous values for what's missing", soft)
	} else if err != nil {
		return prev, fmt.Errorf("%s fetch error: %w", f.src.Name(), err)
	}

	next := prev.Merge(fields)
	if c, ok := f.src.(Corrector); ok {
		next = c.Correct(next)
	}
	next = next.Stamp(f.now())

	if err := f.save(next); err != nil {
		return prev, err
	}
	log.Printf("saved stats to %s: %d monthly listeners, %d followers, %d releases",
		f.path, next.MonthlyListeners, next.Followers, next.Releases)

	return next, nil
}

func (f *Fetcher) save(snap data.Snapshot) error {
	if err := store.Save(f.path, snap); err != nil {
		return fmt.Errorf("error saving stats: %w", err)
	}
	return nil
}
