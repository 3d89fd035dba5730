package mdblog

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/radovskyb/watcher"
	"github.com/rs/zerolog"
)

// pollInterval is how often the watcher scans the content directories.
const pollInterval = 250 * time.Millisecond

var reWatched = regexp.MustCompile(`\.(md|markdown|css|js|png|jpe?g|gif|webp|svg)$`)

// Reloader tells connected browsers to reload when content changes. It is
// only used in development.
type Reloader struct {
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[chan struct{}]struct{}
	w       *watcher.Watcher
	closed  bool
}

// NewReloader returns a Reloader without any watched directory.
func NewReloader(logger zerolog.Logger) *Reloader {
	return &Reloader{
		logger:  logger.With().Str("component", "reload").Logger(),
		clients: make(map[chan struct{}]struct{}),
	}
}

// Watch starts polling dirs for changes to content and asset files.
// Directories that do not exist are skipped.
func (r *Reloader) Watch(dirs ...string) error {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove, watcher.Rename, watcher.Move)
	w.AddFilterHook(watcher.RegexFilterHook(reWatched, false))

	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := w.AddRecursive(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		return nil
	}

	r.mu.Lock()
	r.w = w
	r.mu.Unlock()

	go func() {
		for {
			select {
			case event := <-w.Event:
				r.logger.Debug().Str("path", event.Path).Str("op", event.Op.String()).Msg("content changed")
				r.Notify()
			case err := <-w.Error:
				r.logger.Error().Err(err).Msg("watcher error")
			case <-w.Closed:
				return
			}
		}
	}()

	go func() {
		if err := w.Start(pollInterval); err != nil {
			r.logger.Error().Err(err).Msg("watcher stopped")
		}
	}()
	w.Wait()
	return nil
}

// Notify signals every connected client.
func (r *Reloader) Notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (r *Reloader) subscribe() (chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	ch := make(chan struct{}, 1)
	r.clients[ch] = struct{}{}
	return ch, true
}

func (r *Reloader) unsubscribe(ch chan struct{}) {
	r.mu.Lock()
	delete(r.clients, ch)
	r.mu.Unlock()
}

// Clients returns the number of connected browsers.
func (r *Reloader) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops the watcher and disconnects all clients.
func (r *Reloader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.w != nil {
		r.w.Close()
	}
	for ch := range r.clients {
		close(ch)
		delete(r.clients, ch)
	}
}

// ServeEvents streams server-sent "reload" events until the client goes away.
func (r *Reloader) ServeEvents(c echo.Context) error {
	ch, ok := r.subscribe()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable)
	}
	defer r.unsubscribe(ch)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-store")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	fmt.Fprint(res, ": connected\n\n")
	res.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, open := <-ch:
			if !open {
				return nil
			}
			fmt.Fprint(res, "event: reload\ndata: {}\n\n")
			res.Flush()
		case <-keepAlive.C:
			fmt.Fprint(res, ": ping\n\n")
			res.Flush()
		}
	}
}
