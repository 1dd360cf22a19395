// Package shell serves the global stylesheet and routes request paths to page views.
package shell

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"places/internal/page"
	"places/internal/pipeline"
)

//go:embed static/styles.css
var static embed.FS

const stylesPath = "/static/styles.css"

var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if .Refresh}}
<meta http-equiv="refresh" content="{{.Refresh}}">
{{- end}}
<title>Places</title>
<link rel="stylesheet" href="{{.Styles}}">
</head>
<body>
<main id="root">{{.Body}}</main>
</body>
</html>
`))

type layoutData struct {
	Styles  string
	Refresh int
	Body    template.HTML
}

// Deps are the collaborators the router hands to page views.
type Deps struct {
	Client page.Executor
	Hooks  *pipeline.Pipeline[page.Outcome]
	Logger *zap.Logger
	// LoadingAfter is how long the listing handler waits before answering
	// with the Loading view. Zero waits for the query to settle.
	LoadingAfter time.Duration
}

// NewRouter returns the application handler. Only "/" is routed to a page.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Hooks == nil {
		deps.Hooks = page.DefaultHooks(deps.Logger)
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+stylesPath, http.FileServerFS(static))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /{$}", &listingHandler{deps: deps})

	return accessLog(deps.Logger, mux)
}

type listingHandler struct {
	deps Deps

	mu sync.Mutex
	// pending holds, per route, a listing that was answered with Loading and
	// left running. The next request for the route renders its outcome
	// instead of issuing the query again.
	pending map[string]*page.Listing
}

func (h *listingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Path
	l, adopted := h.take(route)
	if !adopted {
		l = page.NewListing(h.deps.Client,
			page.WithRoute(route),
			page.WithHooks(h.deps.Hooks),
			page.WithLogger(h.deps.Logger))
		// Detached from the request so the listing can outlive a Loading answer.
		l.Mount(context.WithoutCancel(r.Context()))
	}

	var timeout <-chan time.Time
	if h.deps.LoadingAfter > 0 {
		timer := time.NewTimer(h.deps.LoadingAfter)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-l.Done():
	case <-timeout:
	case <-r.Context().Done():
		if adopted {
			h.keep(route, l)
		} else {
			l.Unmount()
		}
		return
	}

	state := l.State()
	refresh := 0
	if !page.Terminal(state) {
		// Left running: its hooks still fire and the browser's refresh picks
		// up the outcome.
		h.keep(route, l)
		refresh = 1
	}
	h.write(w, state, refresh)
}

// take returns the listing left running for route, if any, and forgets it.
func (h *listingHandler) take(route string) (*page.Listing, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.pending[route]
	if ok {
		delete(h.pending, route)
	}
	return l, ok
}

func (h *listingHandler) keep(route string, l *page.Listing) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		h.pending = make(map[string]*page.Listing)
	}
	if prev, ok := h.pending[route]; ok && prev != l {
		// Only one Loading answer per route is outstanding; an older one is
		// still allowed to finish and run its hooks.
		h.deps.Logger.Debug("Replacing pending listing", zap.String("route", route))
	}
	h.pending[route] = l
}

func (h *listingHandler) write(w http.ResponseWriter, state page.State, refresh int) {
	var body bytes.Buffer
	if err := page.Render(&body, state); err != nil {
		h.deps.Logger.Error("Failed to render page", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	err := layoutTmpl.Execute(&out, layoutData{
		Styles:  stylesPath,
		Refresh: refresh,
		Body:    template.HTML(body.String()),
	})
	if err != nil {
		h.deps.Logger.Error("Failed to render layout", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprint(out.Len()))
	_, _ = w.Write(out.Bytes())
}
