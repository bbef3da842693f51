package main

import (
	"context"
	"fmt"

	"github.com/fitomusic/artiststats/server"
	"github.com/fitomusic/artiststats/store"
	"github.com/fitomusic/artiststats/subcmd"
)

func serve(ctx context.Context, args []string) error {
	subcmd := subcmd.New("serve", "serve the landing page and its stats for local preview")
	var (
		port = subcmd.Int("port", 9999, "http port")
		site = subcmd.String("site", ".", "landing page directory")
		out  = subcmd.String("out", store.DefaultPath, "snapshot path")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	addr := fmt.Sprintf(":%d", *port)
	return server.Run(ctx, addr, server.Handler(*site, *out))
}
