// Package health serves liveness and readiness probes.
//
// Checks run on demand, concurrently, each bounded by its own timeout. A
// readiness probe also fails while the service is not marked ready, which is
// how graceful shutdown drains traffic.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Result is the outcome of one probe evaluation.
type Result struct {
	// Failures maps check name to error message.
	Failures map[string]string
}

// OK reports whether every check passed.
func (r Result) OK() bool { return len(r.Failures) == 0 }

// Probes holds the liveness and readiness checks of a service.
type Probes struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New returns Probes in the not-ready state.
func New() *Probes {
	return &Probes{}
}

// AddLiveness registers a check that gates /livez.
func (p *Probes) AddLiveness(name string, timeout time.Duration, fn CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liveness = append(p.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadiness registers a check that gates /readyz.
func (p *Probes) AddReadiness(name string, timeout time.Duration, fn CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readiness = append(p.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady marks the service ready or draining.
func (p *Probes) SetReady(ready bool) {
	p.ready.Store(ready)
}

// Live evaluates the liveness checks.
func (p *Probes) Live(ctx context.Context) Result {
	p.mu.RLock()
	checks := slices.Clone(p.liveness)
	p.mu.RUnlock()

	return evaluate(ctx, checks)
}

// Ready evaluates the readiness checks. A service not marked ready fails with
// a "_ready" entry without running them.
func (p *Probes) Ready(ctx context.Context) Result {
	if !p.ready.Load() {
		return Result{Failures: map[string]string{"_ready": "service is not ready"}}
	}

	p.mu.RLock()
	checks := slices.Clone(p.readiness)
	p.mu.RUnlock()

	return evaluate(ctx, checks)
}

func evaluate(ctx context.Context, checks []check) Result {
	errs := make([]error, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			errs[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{}
	for i, err := range errs {
		if err == nil {
			continue
		}
		if res.Failures == nil {
			res.Failures = make(map[string]string)
		}
		res.Failures[checks[i].name] = err.Error()
	}
	return res
}

func runCheck(ctx context.Context, c check) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("check panicked: %v", r)
		}
	}()
	return c.fn(ctx)
}

// LiveHandler serves /livez.
func (p *Probes) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, p.Live(r.Context()))
	}
}

// ReadyHandler serves /readyz.
func (p *Probes) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, p.Ready(r.Context()))
	}
}

// writeResult writes {"status":"ok"} with 200, or
// {"status":"unhealthy","checks":{...}} with 503.
func writeResult(w http.ResponseWriter, res Result) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if res.OK() {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(res.Failures))
		for name := range res.Failures {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(res.Failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
