package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fitomusic/artiststats/store"
	"github.com/fitomusic/artiststats/subcmd"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func show(ctx context.Context, w io.Writer, args []string) error {
	subcmd := subcmd.New("show", "print the current snapshot")
	var (
		out = subcmd.String("out", store.DefaultPath, "snapshot path")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	snap := store.Load(*out)

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "monthly listeners\t%d\n", snap.MonthlyListeners)
	p.Fprintf(w, "followers\t%d\n", snap.Followers)
	p.Fprintf(w, "releases\t%d\n", snap.Releases)
	if snap.Popularity != nil {
		p.Fprintf(w, "popularity\t%d\n", *snap.Popularity)
	}
	if snap.LastUpdated.IsZero() {
		p.Fprintf(w, "last updated\tnever\n")
	} else {
		p.Fprintf(w, "last updated\t%s\n", snap.LastUpdated.Format(time.RFC3339))
	}
	return nil
}
