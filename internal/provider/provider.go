// Package provider is the entry point applications use to request series data.
// Each request runs on a fresh worker; a new request supersedes the previous one.
package provider

import (
	"context"
	"log/slog"
	"sync"

	"github.com/i474232898/climate-series/internal/series"
	"github.com/i474232898/climate-series/internal/worker"
)

// Callback receives the outcome of GetData. Exactly one of err and result is set.
type Callback func(err error, result *series.ResultSet)

// Provider owns at most one live worker at a time.
type Provider struct {
	spawn  worker.Spawner
	logger *slog.Logger

	mu      sync.Mutex
	routes  series.Routes
	current *worker.Worker
}

// New creates a Provider that starts workers with spawn and configures them with routes.
func New(spawn worker.Spawner, routes series.Routes) *Provider {
	return &Provider{
		spawn:  spawn,
		routes: routes.Clone(),
		logger: slog.Default(),
	}
}

// Configure replaces the route table used for subsequent requests.
func (p *Provider) Configure(routes series.Routes) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = routes.Clone()
}

// GetData requests dataType restricted to filters and returns immediately.
// Any request still in flight is terminated first and its callback is never
// invoked. cb is called once from another goroutine, after which the worker is
// terminated.
func (p *Provider) GetData(dataType string, filters series.Filter, cb Callback) {
	p.mu.Lock()
	p.terminateLocked()

	w := p.spawn()
	p.current = w
	routes := p.routes
	p.mu.Unlock()

	// A fresh worker is unconfigured, so CONFIG always precedes GET_DATA.
	if err := w.Post(worker.Config(routes)); err != nil {
		p.logger.Debug("worker gone before CONFIG", "worker", w.ID().String(), "error", err)
	}
	if err := w.Post(worker.GetData(dataType, filters)); err != nil {
		p.logger.Debug("worker gone before GET_DATA", "worker", w.ID().String(), "error", err)
	}

	go p.await(w, cb)
}

// Fetch is the blocking form of GetData. Cancelling ctx terminates the request.
func (p *Provider) Fetch(ctx context.Context, dataType string, filters series.Filter) (series.ResultSet, error) {
	type outcome struct {
		result *series.ResultSet
		err    error
	}
	done := make(chan outcome, 1)

	p.GetData(dataType, filters, func(err error, result *series.ResultSet) {
		done <- outcome{result: result, err: err}
	})

	select {
	case o := <-done:
		if o.err != nil {
			return series.ResultSet{}, o.err
		}
		return *o.result, nil
	case <-ctx.Done():
		p.Close()
		return series.ResultSet{}, ctx.Err()
	}
}

// Close terminates the live worker, if any. Its pending callback is dropped.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminateLocked()
}

func (p *Provider) terminateLocked() {
	if p.current == nil {
		return
	}
	p.logger.Debug("terminating worker", "worker", p.current.ID().String())
	_ = p.current.Post(worker.Terminate())
	p.current = nil
}

func (p *Provider) await(w *worker.Worker, cb Callback) {
	var (
		err    error
		result *series.ResultSet
	)

	select {
	case reply := <-w.Messages():
		switch reply.Status {
		case worker.StatusError:
			err = reply.Err
		default:
			rs := reply.Result
			result = &rs
		}
	case err = <-w.Errors():
	case <-w.Done():
		// A crash reports its fault before stopping.
		select {
		case err = <-w.Errors():
		default:
			// Terminated without replying: superseded or closed.
			return
		}
	}

	p.mu.Lock()
	if p.current != w {
		p.mu.Unlock()
		p.logger.Debug("discarding reply of superseded worker", "worker", w.ID().String())
		return
	}
	p.terminateLocked()
	p.mu.Unlock()

	cb(err, result)
}
