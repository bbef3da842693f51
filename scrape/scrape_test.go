package scrape_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitomusic/artiststats/data"
	"github.com/fitomusic/artiststats/pagecache"
	"github.com/fitomusic/artiststats/request"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artistPage = `<!DOCTYPE html><html><head>
<title>Fito | Spotify</title>
<meta property="og:description" content="Artist · 3,456 monthly listeners.">
</head><body><script id="initial-state">{"artist":{"followers":{"total":1999}}}</script></body></html>`

func pageServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/artist/abc", req.URL.Path)
		gotUA = req.Header.Get("User-Agent")
		if status != http.StatusOK {
			http.Error(w, "blocked", status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &gotUA
}

func TestSourceFetch(t *testing.T) {
	srv, gotUA := pageServer(t, http.StatusOK, artistPage)
	cache := pagecache.New(t.TempDir())
	src := &scrape.Source{ArtistID: "abc", BaseURL: srv.URL + "/artist", Client: srv.Client(), Cache: cache}
	assert.Equal(t, "scrape", src.Name())

	fields, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3456), *fields.MonthlyListeners)
	assert.Equal(t, int64(1999), *fields.Followers)
	assert.Nil(t, fields.Releases)
	assert.Nil(t, fields.Popularity)
	assert.Equal(t, request.BrowserUserAgent, *gotUA)

	cached, err := cache.Get(src.URL())
	require.NoError(t, err)
	assert.Equal(t, artistPage, string(cached))
}

func TestSourceFetchPartial(t *testing.T) {
	srv, _ := pageServer(t, http.StatusOK, `<html><body>812 followers</body></html>`)
	src := &scrape.Source{ArtistID: "abc", BaseURL: srv.URL + "/artist", Client: srv.Client()}

	fields, err := src.Fetch(context.Background())
	var soft *scrape.SoftFailure
	require.True(t, errors.As(err, &soft))
	assert.Contains(t, err.Error(), "monthly listeners")
	assert.Nil(t, fields.MonthlyListeners)
	assert.Equal(t, int64(812), *fields.Followers)
}

func TestSourceFetchBlocked(t *testing.T) {
	srv, _ := pageServer(t, http.StatusForbidden, "")
	src := &scrape.Source{ArtistID: "abc", BaseURL: srv.URL + "/artist", Client: srv.Client(), UserAgent: "custom"}

	fields, err := src.Fetch(context.Background())
	var soft *scrape.SoftFailure
	require.True(t, errors.As(err, &soft))
	var statusErr *request.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.True(t, fields.Empty())
}

func TestSourceFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := &scrape.Source{ArtistID: "abc", BaseURL: url, Client: http.DefaultClient}
	fields, err := src.Fetch(context.Background())
	var soft *scrape.SoftFailure
	require.True(t, errors.As(err, &soft))
	assert.True(t, fields.Empty())
}

func TestSourceURL(t *testing.T) {
	src := &scrape.Source{ArtistID: "49VK62ooP7k2DFtFg5Q4id"}
	assert.Equal(t, "https://open.spotify.com/artist/49VK62ooP7k2DFtFg5Q4id", src.URL())

	src.BaseURL = "http://localhost:1234/artist/"
	assert.Equal(t, "http://localhost:1234/artist/49VK62ooP7k2DFtFg5Q4id", src.URL())
}

func TestPolicyBoundary(t *testing.T) {
	policy := scrape.Policy{
		MonthlyListeners: scrape.Guard{Threshold: 100, Fallback: 2450},
		Followers:        scrape.Guard{Threshold: 50, Fallback: 1180},
		Releases:         scrape.Guard{Threshold: 1, Fallback: 14},
	}

	atThreshold := policy.Correct(data.Snapshot{MonthlyListeners: 100, Followers: 50, Releases: 1})
	assert.Equal(t, int64(2450), atThreshold.MonthlyListeners)
	assert.Equal(t, int64(1180), atThreshold.Followers)
	assert.Equal(t, int64(14), atThreshold.Releases)

	above := policy.Correct(data.Snapshot{MonthlyListeners: 101, Followers: 51, Releases: 2})
	assert.Equal(t, int64(101), above.MonthlyListeners)
	assert.Equal(t, int64(51), above.Followers)
	assert.Equal(t, int64(2), above.Releases)
}

func TestPolicyIndependentFields(t *testing.T) {
	policy := scrape.DefaultPolicy()
	snap := data.Snapshot{MonthlyListeners: 7, Followers: 5000, Releases: 30, Popularity: data.Int(20)}
	corrected := policy.Correct(snap)
	assert.Equal(t, policy.MonthlyListeners.Fallback, corrected.MonthlyListeners)
	assert.Equal(t, int64(5000), corrected.Followers)
	assert.Equal(t, int64(30), corrected.Releases)
	assert.Equal(t, int64(20), *corrected.Popularity)
}

func TestDefaultPolicyCorrectsDefaultSnapshot(t *testing.T) {
	policy := scrape.DefaultPolicy()
	corrected := policy.Correct(data.Default())
	assert.Equal(t, policy.MonthlyListeners.Fallback, corrected.MonthlyListeners)
	assert.Equal(t, policy.Followers.Fallback, corrected.Followers)
	assert.Equal(t, policy.Releases.Fallback, corrected.Releases)
}
