// Package server serves the landing page and its stats for local preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/fitomusic/artiststats/store"
)

// Handler serves the static site in siteDir, except for /data/stats.json,
// which is always the snapshot at statsPath. A missing or broken snapshot is
// served as the defaults, same as the fetcher would start from.
func Handler(siteDir, statsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/stats.json", func(w http.ResponseWriter, req *http.Request) {
		snap := store.Load(statsPath)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			log.Printf("error writing stats: %s", err)
		}
	})
	mux.Handle("GET /", http.FileServer(http.Dir(siteDir)))
	return mux
}

// Run serves handler on addr until ctx is done, then shuts down. A shutdown
// because ctx is done returns nil.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := http.Server{Addr: addr, Handler: handler}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	log.Printf("listening on %s", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Printf("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
