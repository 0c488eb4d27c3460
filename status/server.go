package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Handler returns the HTTP handler for the status requests.
func Handler(feed *ReportFeed) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status/report", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(feed.Status())
	})

	mux.HandleFunc("GET /status/loglevel/{level}", func(w http.ResponseWriter, r *http.Request) {
		level, err := strconv.ParseUint(r.PathValue("level"), 10, 8)
		if err != nil {
			http.Error(w, "log level must be a number from 0 to 255", http.StatusBadRequest)
			return
		}
		feed.SetLogLevel(uint8(level))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("log level " + strconv.FormatUint(level, 10) + "\n"))
	})

	return mux
}

// Serve serves the status requests on the given address until the context
// is cancelled, when it returns the context's error.
func Serve(ctx context.Context, listenAddr string, feed *ReportFeed) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(feed),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
