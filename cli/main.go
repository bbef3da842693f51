// artiststats keeps data/stats.json, the artist stats shown on the landing
// page, up to date.
//
// With SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET set it uses the Spotify
// Web API; without them it scrapes the public artist page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fitomusic/artiststats/sigctx"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(0)
	if err := run(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		log.Printf("error: %s", err)
		os.Exit(1)
	} else if errors.Is(err, context.Canceled) {
		log.Printf("canceled")
		os.Exit(1)
	}
}

var usage = strings.TrimSpace(`
usage: artiststats $cmd
valid $cmd are 'fetch', 'show', 'extract', 'serve'
for help: artiststats $cmd -help
`)

func run() error {
	ctx := sigctx.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	if len(os.Args) < 2 {
		return errors.New(usage)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "fetch":
		return fetch(ctx, args)

	case "show":
		return show(ctx, os.Stdout, args)

	case "extract":
		return extract(ctx, os.Stdout, args)

	case "serve":
		return serve(ctx, args)

	default:
		return fmt.Errorf("unknown cmd: '%s'\n%s", cmd, usage)
	}
}
