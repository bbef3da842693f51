package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fitomusic/artiststats/config"
	"github.com/fitomusic/artiststats/fetcher"
	"github.com/fitomusic/artiststats/pagecache"
	"github.com/fitomusic/artiststats/request"
	"github.com/fitomusic/artiststats/scrape"
	"github.com/fitomusic/artiststats/spotify"
	"github.com/fitomusic/artiststats/subcmd"
)

const fetchDoc = "fetch the artist's current stats and write them to the snapshot file\n" +
	"uses the spotify api if SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are set, and scrapes otherwise\n" +
	"run it from the site root: the snapshot path and config file are relative to the working directory"

func fetch(ctx context.Context, args []string) error {
	subcmd := subcmd.New("fetch", fetchDoc)
	var (
		strategy   = subcmd.String("strategy", fetcher.StrategyAuto, "one of 'auto', 'api', 'scrape'")
		out        = subcmd.String("out", "", "snapshot path (default from config, data/stats.json)")
		configPath = subcmd.String("config", config.DefaultPath, "config file")
		cacheDir   = subcmd.String("page-cache", "", "if set, keep a copy of scraped pages in this directory")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	cfg, err := config.Read(*configPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.Out = *out
	}

	src, err := fetcher.Select(*strategy, apiSource(cfg), scrapeSource(cfg, *cacheDir))
	if err != nil {
		return err
	}

	_, err = fetcher.New(src, cfg.Out).Run(ctx)
	if err != nil && src.Name() == fetcher.StrategyScrape && !errors.Is(err, context.Canceled) {
		// Scraping is best effort all the way down; the page keeps whatever
		// snapshot it already has.
		log.Printf("warning: %s", err)
		return nil
	}
	return err
}

func apiSource(cfg config.Config) *spotify.Source {
	client := spotify.New(os.Getenv(config.ClientIDEnv), os.Getenv(config.ClientSecretEnv)).
		WithEndpoints(request.DefaultClient, cfg.TokenURL, cfg.APIURL)
	return &spotify.Source{Client: client, ArtistID: cfg.ArtistID}
}

func scrapeSource(cfg config.Config, cacheDir string) *scrape.Source {
	src := &scrape.Source{
		ArtistID:  cfg.ArtistID,
		BaseURL:   cfg.PageURL,
		UserAgent: cfg.UserAgent,
		Client:    request.DefaultClient,
		Policy:    cfg.Policy,
	}
	if cacheDir != "" {
		src.Cache = pagecache.New(cacheDir)
	}
	return src
}
