package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fitomusic/artiststats/config"
	"github.com/fitomusic/artiststats/pagecache"
	"github.com/fitomusic/artiststats/request"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/fitomusic/artiststats/subcmd"
)

func extract(ctx context.Context, w io.Writer, args []string) error {
	subcmd := subcmd.New("extract", "run the scraper's extractors over a saved page and print what they find").
		SetArg("file", "string", "saved html page; omit to read the page archived by fetch -page-cache")
	var (
		cacheDir   = subcmd.String("page-cache", "", "directory fetch -page-cache wrote to")
		configPath = subcmd.String("config", config.DefaultPath, "config file")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	var (
		url  string
		body []byte
		err  error
	)
	switch {
	case subcmd.NArg() == 1:
		url = subcmd.Arg(0)
		body, err = os.ReadFile(url)
	case *cacheDir != "":
		cfg, cfgErr := config.Read(*configPath)
		if cfgErr != nil {
			return cfgErr
		}
		url = (&scrape.Source{ArtistID: cfg.ArtistID, BaseURL: cfg.PageURL}).URL()
		body, err = pagecache.New(*cacheDir).Get(url)
	default:
		subcmd.Usage()
		return errors.New("extract needs a file or -page-cache")
	}
	if err != nil {
		return err
	}

	page, err := request.ParseHTML(url, body)
	if err != nil {
		return err
	}
	ext := scrape.Extract(scrape.Text(page))

	printMatch(w, "monthly listeners", ext.MonthlyListeners)
	printMatch(w, "followers", ext.Followers)
	return nil
}

func printMatch(w io.Writer, name string, m scrape.Match) {
	if !m.Found() {
		fmt.Fprintf(w, "%s\tnot found\n", name)
		return
	}
	fmt.Fprintf(w, "%s\t%d\t(%s)\n", name, m.Value, m.Pattern)
}
