package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nixpig/corkscrew/packages/core/config"
	"github.com/nixpig/corkscrew/packages/core/env"
	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/nixpig/corkscrew/packages/core/resolver"
	"github.com/nixpig/corkscrew/packages/ctxlog"
	"github.com/nixpig/corkscrew/packages/http"
	"github.com/nixpig/corkscrew/packages/stats"
)

type Runner struct {
	client *http.Client
	config *Config
}

type Config struct {
	// Parallel bounds the number of requests in flight. 0 and 1 dispatch
	// sequentially.
	Parallel int
	// BasicAuthHeader sends basic credentials as an Authorization header
	// instead of URL userinfo.
	BasicAuthHeader bool
	// Expander interpolates {{...}} placeholders. nil disables interpolation.
	Expander *env.Expander
	// ClientOptions configure the shared HTTP client.
	ClientOptions []http.ClientOption
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	return &Runner{
		client: http.NewClient(cfg.ClientOptions...),
		config: cfg,
	}
}

// Outcome is the result of dispatching one request. Error is nil when any
// HTTP response was received, whatever its status.
type Outcome struct {
	Name     string
	Request  *http.Request
	Response *http.Response
	Error    error
	Duration time.Duration
}

func (o *Outcome) Success() bool {
	return o.Error == nil && o.Response != nil
}

func (o *Outcome) StatusCode() int {
	if o.Response == nil {
		return 0
	}
	return o.Response.StatusCode
}

// URL is the final URL for a success, the requested URL otherwise. Passwords
// are redacted.
func (o *Outcome) URL() string {
	if o.Response != nil && o.Response.URL != "" {
		return o.Response.URL
	}
	if o.Request != nil {
		return http.Redact(o.Request.BuildURL())
	}
	return ""
}

type RunResult struct {
	File      string
	Outcomes  []*Outcome
	Duration  time.Duration
	Succeeded int
	Failed    int
	Stats     *stats.Summary
}

// Outcome returns the outcome for the named request.
func (r *RunResult) Outcome(name string) (*Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Plan reads the request file named by settings and returns the
// materialized requests in traversal order. Nothing is dispatched.
func (r *Runner) Plan(ctx context.Context, settings config.Settings) ([]*http.Request, error) {
	log := ctxlog.FromContext(ctx)

	nodes, err := parser.ParseFile(settings.ConfigPath)
	if err != nil {
		return nil, err
	}

	records, err := resolver.Resolve(nodes, settings.RequestNames)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved requests", "file", settings.ConfigPath, "count", len(records))

	return r.Materialize(ctx, records)
}

// Materialize builds every record. The first failure, e.g. a
// *http.MissingHostError, aborts the batch.
func (r *Runner) Materialize(ctx context.Context, records []*resolver.Record) ([]*http.Request, error) {
	log := ctxlog.FromContext(ctx)

	var opts []http.BuildOption
	if r.config.Expander != nil {
		opts = append(opts, http.WithExpander(r.config.Expander.Expand))
	}
	if r.config.BasicAuthHeader {
		opts = append(opts, http.WithBasicAuthHeader())
	}
	opts = append(opts, http.OnUnknownMethod(func(name, method string) {
		log.Debug("unknown method, using GET", "name", name, "method", method)
	}))

	requests := make([]*http.Request, 0, len(records))
	for _, rec := range records {
		req, err := http.BuildRequest(rec, opts...)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// Run executes the whole pipeline for settings: parse, resolve,
// materialize, dispatch. Configuration errors are returned; transport
// failures are reported per request in the result.
func (r *Runner) Run(ctx context.Context, settings config.Settings) (*RunResult, error) {
	requests, err := r.Plan(ctx, settings)
	if err != nil {
		return nil, err
	}

	cfg := *r.config
	cfg.Parallel = settings.Parallel
	run := &Runner{client: r.client, config: &cfg}
	ctxlog.FromContext(ctx).Debug("executing", "count", len(requests), "parallel", settings.Parallel, "sequential", settings.Sequential())

	result := run.Execute(ctx, requests)
	result.File = settings.ConfigPath
	return result, nil
}

// Execute dispatches requests and returns one outcome per request, in
// request order. A failed request never prevents the others from running.
func (r *Runner) Execute(ctx context.Context, requests []*http.Request) *RunResult {
	start := time.Now()
	collector := stats.NewCollector()
	collector.Start()

	var outcomes []*Outcome
	if r.config.Parallel > 1 {
		outcomes = r.runParallel(ctx, requests, collector)
	} else {
		outcomes = make([]*Outcome, len(requests))
		for i, req := range requests {
			outcomes[i] = r.dispatch(ctx, req, collector)
		}
	}

	collector.Stop()
	result := &RunResult{
		Outcomes: outcomes,
		Duration: time.Since(start),
		Stats:    collector.Summary(),
	}
	for _, o := range outcomes {
		if o.Success() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (r *Runner) runParallel(ctx context.Context, requests []*http.Request, collector *stats.Collector) []*Outcome {
	outcomes := make([]*Outcome, len(requests))
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.config.Parallel)

	for i, req := range requests {
		wg.Add(1)
		sem <- struct{}{} // acquire semaphore

		go func(idx int, request *http.Request) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore

			outcomes[idx] = r.dispatch(ctx, request, collector)
		}(i, req)
	}

	wg.Wait()
	return outcomes
}

func (r *Runner) dispatch(ctx context.Context, req *http.Request, collector *stats.Collector) *Outcome {
	log := ctxlog.FromContext(ctx).With("name", req.Name)
	outcome := &Outcome{Name: req.Name, Request: req}

	if err := ctx.Err(); err != nil {
		outcome.Error = &http.TransportError{Name: req.Name, URL: http.Redact(req.URL), Err: fmt.Errorf("not dispatched: %w", err)}
		log.Debug("skipped", "error", err)
		return outcome
	}

	log.Debug("dispatch", "method", req.Method, "url", http.Redact(req.URL), "timeout", req.Timeout)
	start := time.Now()
	resp, err := r.client.Do(ctx, req)
	outcome.Duration = time.Since(start)
	collector.Record(outcome.Duration, err)

	if err != nil {
		outcome.Error = err
		log.Debug("failed", "error", err, "duration", outcome.Duration)
		return outcome
	}

	outcome.Response = resp
	log.Debug("response", "status", resp.StatusCode, "duration", outcome.Duration)
	return outcome
}
