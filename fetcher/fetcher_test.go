package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fitomusic/artiststats/data"
	"github.com/fitomusic/artiststats/fetcher"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/fitomusic/artiststats/spotify"
	"github.com/fitomusic/artiststats/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	fields data.Fields
	err    error
}

func (src fakeSource) Name() string { return "fake" }

func (src fakeSource) Fetch(context.Context) (data.Fields, error) { return src.fields, src.err }

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

var (
	before = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	now    = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

func writeSnapshot(t *testing.T, snap data.Snapshot) string {
	path := filepath.Join(t.TempDir(), "data", "stats.json")
	require.NoError(t, store.Save(path, snap))
	return path
}

func TestRunMergesOverPrevious(t *testing.T) {
	path := writeSnapshot(t, data.Snapshot{MonthlyListeners: 500, Followers: 400, Releases: 9, Popularity: data.Int(30)}.Stamp(before))

	src := fakeSource{fields: data.Fields{Followers: data.Int(410)}}
	snap, err := fetcher.New(src, path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)

	want := data.Snapshot{MonthlyListeners: 500, Followers: 410, Releases: 9, Popularity: data.Int(30), LastUpdated: now}
	assert.Equal(t, want, snap)
	assert.Equal(t, want, store.Load(path))
}

func TestRunSeedsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "dir", "stats.json")
	snap, err := fetcher.New(fakeSource{}, path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, data.Default().Stamp(now), snap)
	assert.Equal(t, snap, store.Load(path))
}

func TestRunSeedsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"monthlyListeners": 12,`), 0644))

	snap, err := fetcher.New(fakeSource{fields: data.Fields{Releases: data.Int(3)}}, path).
		WithClock(clockAt(now)).
		Run(context.Background())
	require.NoError(t, err)

	want := data.Default()
	want.Releases = 3
	assert.Equal(t, want.Stamp(now), snap)
}

func TestRunHardFailureWritesNothing(t *testing.T) {
	path := writeSnapshot(t, data.Default().Stamp(before))
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	src := fakeSource{err: errors.New("boom")}
	_, err = fetcher.New(src, path).WithClock(clockAt(now)).Run(context.Background())
	assert.ErrorContains(t, err, "boom")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestRunSoftFailureStillStamps(t *testing.T) {
	prev := data.Snapshot{MonthlyListeners: 500, Followers: 400, Releases: 9}.Stamp(before)
	path := writeSnapshot(t, prev)

	src := fakeSource{err: &scrape.SoftFailure{Err: errors.New("page moved")}}
	snap, err := fetcher.New(src, path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(500), snap.MonthlyListeners)
	assert.Equal(t, int64(400), snap.Followers)
	assert.Equal(t, int64(9), snap.Releases)
	assert.Equal(t, now, snap.LastUpdated)
}

func TestRunCanceled(t *testing.T) {
	path := writeSnapshot(t, data.Default().Stamp(before))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.New(fakeSource{}, path).WithClock(clockAt(now)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, store.Load(path).LastUpdated)
}

func TestRunLastUpdatedMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	at := before
	var last time.Time
	for i := 0; i < 5; i++ {
		src := fakeSource{err: &scrape.SoftFailure{Err: errors.New("nothing")}}
		if i%2 == 0 {
			src = fakeSource{fields: data.Fields{Followers: data.Int(int64(1000 + i))}}
		}
		snap, err := fetcher.New(src, path).WithClock(clockAt(at)).Run(context.Background())
		require.NoError(t, err)
		assert.False(t, snap.LastUpdated.Before(last))
		last = snap.LastUpdated
		at = at.Add(time.Hour)
	}
}

// scrapeServer serves an artist page with the given monthly listener count.
func scrapeServer(t *testing.T, monthlyListeners int64) *scrape.Source {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><meta property="og:description" content="Artist · %d monthly listeners."></head>`+
			`<body>{"followers":{"total":5000}}</body></html>`, monthlyListeners)
	}))
	t.Cleanup(srv.Close)
	return &scrape.Source{
		ArtistID: "abc",
		BaseURL:  srv.URL,
		Client:   srv.Client(),
		Policy: scrape.Policy{
			MonthlyListeners: scrape.Guard{Threshold: 100, Fallback: 2450},
			Followers:        scrape.Guard{Threshold: 50, Fallback: 1180},
			Releases:         scrape.Guard{Threshold: 1, Fallback: 14},
		},
	}
}

func TestScrapeSentinelBoundary(t *testing.T) {
	prev := data.Snapshot{MonthlyListeners: 3000, Followers: 4000, Releases: 20}.Stamp(before)

	path := writeSnapshot(t, prev)
	snap, err := fetcher.New(scrapeServer(t, 100), path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2450), snap.MonthlyListeners)
	assert.Equal(t, int64(2450), store.Load(path).MonthlyListeners)
	assert.Equal(t, int64(5000), snap.Followers)

	path = writeSnapshot(t, prev)
	snap, err = fetcher.New(scrapeServer(t, 101), path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(101), snap.MonthlyListeners)
	assert.Equal(t, int64(101), store.Load(path).MonthlyListeners)
}

func TestScrapeUnreachableKeepsPrevious(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	src := &scrape.Source{ArtistID: "abc", BaseURL: srv.URL, Client: srv.Client(), Policy: scrape.DefaultPolicy()}
	srv.Close()

	prev := data.Snapshot{MonthlyListeners: 3000, Followers: 4000, Releases: 20}.Stamp(before)
	path := writeSnapshot(t, prev)
	snap, err := fetcher.New(src, path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prev.Fields(), snap.Fields())
	assert.Equal(t, now, snap.LastUpdated)
}

func apiServer(t *testing.T, tokenStatus int) *spotify.Source {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, req *http.Request) {
		if tokenStatus != http.StatusOK {
			http.Error(w, `{"error":"invalid_client"}`, tokenStatus)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("GET /v1/artists/abc", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"followers":{"total":777},"popularity":41}`)
	})
	mux.HandleFunc("GET /v1/artists/abc/albums", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("offset") != "" {
			t.Errorf("second releases page requested")
		}
		fmt.Fprint(w, `{"limit":50,"offset":0,"total":50,"next":"http://`+req.Host+`/v1/artists/abc/albums?offset=50"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := spotify.New("id", "secret").WithEndpoints(srv.Client(), srv.URL+"/api/token", srv.URL+"/v1")
	return &spotify.Source{Client: client, ArtistID: "abc"}
}

func TestAPIRun(t *testing.T) {
	path := writeSnapshot(t, data.Snapshot{MonthlyListeners: 1, Followers: 1, Releases: 1}.Stamp(before))
	snap, err := fetcher.New(apiServer(t, http.StatusOK), path).WithClock(clockAt(now)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(777), snap.MonthlyListeners)
	assert.Equal(t, int64(777), snap.Followers)
	assert.Equal(t, int64(50), snap.Releases, "only the first page's total")
	assert.Equal(t, int64(41), *snap.Popularity)
	assert.Equal(t, snap, store.Load(path))
}

func TestAPITokenRejectedLeavesFileUntouched(t *testing.T) {
	path := writeSnapshot(t, data.Snapshot{MonthlyListeners: 321, Followers: 321, Releases: 4}.Stamp(before))
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = fetcher.New(apiServer(t, http.StatusBadRequest), path).WithClock(clockAt(now)).Run(context.Background())
	var authErr *spotify.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestAPIMissingCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	src := &spotify.Source{Client: spotify.New("", ""), ArtistID: "abc"}
	_, err := fetcher.New(src, path).Run(context.Background())
	assert.ErrorIs(t, err, spotify.ErrMissingCredentials)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSelect(t *testing.T) {
	withCreds := &spotify.Source{Client: spotify.New("id", "secret")}
	withoutCreds := &spotify.Source{Client: spotify.New("", "")}
	scraper := &scrape.Source{}

	src, err := fetcher.Select("auto", withCreds, scraper)
	require.NoError(t, err)
	assert.Equal(t, "api", src.Name())

	src, err = fetcher.Select("auto", withoutCreds, scraper)
	require.NoError(t, err)
	assert.Equal(t, "scrape", src.Name())

	src, err = fetcher.Select("api", withoutCreds, scraper)
	require.NoError(t, err)
	assert.Equal(t, "api", src.Name())

	src, err = fetcher.Select("scrape", withCreds, scraper)
	require.NoError(t, err)
	assert.Equal(t, "scrape", src.Name())

	_, err = fetcher.Select("carrier-pigeon", withCreds, scraper)
	assert.Error(t, err)
}
