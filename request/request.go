package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// BrowserUserAgent is sent with page requests. open.spotify.com serves a
// stripped-down page, or nothing, to clients that don't look like a browser.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultClient is the client used when callers don't bring their own.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// A Page is a fetched and parsed html document, along with the raw bytes it
// was parsed from.
type Page struct {
	URL  string
	Doc  *goquery.Document
	Body []byte
}

// FetchHTML does an HTTP GET on the given URL with the given User-Agent, then
// parses the response as HTML.
func FetchHTML(ctx context.Context, client *http.Client, url, userAgent string) (*Page, error) {
	if client == nil {
		client = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request for '%s': %w", url, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching '%s': %w", url, err)
	}
	defer resp.Body.Close()
	if err := Error(resp); err != nil {
		return nil, fmt.Errorf("unexpected status from '%s': %w", url, err)
	}

	if contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-type")); err != nil || contentType != "text/html" {
		return nil, fmt.Errorf("expected an html response at '%s', but got '%s'", url, resp.Header.Get("Content-type"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading body from '%s': %w", url, err)
	}

	return ParseHTML(url, body)
}

// ParseHTML parses an already-fetched html document.
func ParseHTML(url string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing html from '%s': %w", url, err)
	}
	return &Page{URL: url, Doc: doc, Body: body}, nil
}

// StatusError is returned by Error for non-2xx responses.
type StatusError struct {
	StatusCode int
	Dump       string
}

func (err *StatusError) Error() string {
	if err.Dump == "" {
		return fmt.Sprintf("http status code %d", err.StatusCode)
	}
	return fmt.Sprintf("http status code %d:\n%s", err.StatusCode, err.Dump)
}

// Error checks the given http response for an error code, and, if one is
// present, reads the body and returns a friendly error.
func Error(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, err := httputil.DumpResponse(resp, true)
		if err != nil {
			return fmt.Errorf("%w; error decoding body: %w", &StatusError{StatusCode: resp.StatusCode}, err)
		}
		return &StatusError{StatusCode: resp.StatusCode, Dump: string(bs)}
	}
	return nil
}
