// Package page implements the places listing view: it runs the getPlaces
// query once and renders whatever state the query resolved to.
package page

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"places/internal/diagnostics"
	"places/internal/pipeline"
	"places/pkg/graphql"
)

// PlacesQuery is the only query the listing issues.
const PlacesQuery = `query getPlaces {
	places {
		id
		name
		city
		country
	}
}`

// Executor runs a GraphQL query. *graphql.Client implements it.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]any) graphql.Result
}

// Outcome is handed to the after-render hooks once the listing settles.
type Outcome struct {
	Route  string
	State  State
	Result graphql.Result
	At     time.Time
}

// Listing is one mounted instance of the listing view. Its state starts at
// Loading and moves at most once, to a terminal state. After Unmount, a
// completion that arrives late is dropped and no hooks run.
type Listing struct {
	exec   Executor
	route  string
	hooks  *pipeline.Pipeline[Outcome]
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
}

type Option func(*Listing)

func WithRoute(route string) Option {
	return func(l *Listing) { l.route = route }
}

// WithHooks sets the pipeline run after the listing reaches a terminal state.
func WithHooks(p *pipeline.Pipeline[Outcome]) Option {
	return func(l *Listing) { l.hooks = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Listing) { l.logger = logger }
}

func NewListing(exec Executor, opts ...Option) *Listing {
	l := &Listing{
		exec:   exec,
		route:  "/",
		logger: zap.NewNop(),
		state:  Loading{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.hooks == nil {
		l.hooks = DefaultHooks(l.logger)
	}
	return l
}

// DefaultHooks reports every outcome to the log.
func DefaultHooks(logger *zap.Logger) *pipeline.Pipeline[Outcome] {
	return pipeline.NewPipeline(logger,
		pipeline.NewStage(ReportStep(diagnostics.NewLogReporter(logger))))
}

// Mount issues the query. The fetch is bound to ctx and to the listing's
// lifetime. Calling Mount again has no effect.
func (l *Listing) Mount(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mounted || l.unmounted {
		return
	}
	l.mounted = true

	fctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		res := l.exec.Execute(fctx, PlacesQuery, nil)
		l.complete(fctx, res)
	}()
}

func (l *Listing) complete(ctx context.Context, res graphql.Result) {
	l.mu.Lock()
	if l.unmounted || ctx.Err() != nil {
		l.mu.Unlock()
		l.logger.Debug("Dropping completion for torn down listing", zap.String("route", l.route))
		return
	}
	l.state = Resolve(res)
	state := l.state
	close(l.done)
	l.mu.Unlock()

	l.hooks.Run(context.WithoutCancel(ctx), &Outcome{
		Route:  l.route,
		State:  state,
		Result: res,
		At:     time.Now().UTC(),
	})
}

// State returns the current state.
func (l *Listing) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done is closed when the listing reaches a terminal state.
func (l *Listing) Done() <-chan struct{} {
	return l.done
}

// Unmount tears the listing down and cancels an in-flight fetch.
func (l *Listing) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unmounted = true
	if l.cancel != nil {
		l.cancel()
	}
}

// Wait blocks until the fetch goroutine, including its hooks, has returned.
func (l *Listing) Wait() {
	l.wg.Wait()
}
