package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simon-lentz/lspbroker/registry"
	"github.com/simon-lentz/lspbroker/transport"
)

// BatchKey identifies an in-flight dispatch batch for cancellation: a
// superseding request for the same (buffile, feature) abandons the older
// batch and its continuation is never invoked.
type BatchKey struct {
	Buffile string
	Feature registry.Feature
}

// Dispatcher is the sole entry point features call through: given a
// feature, it selects eligible servers, fans out per-server requests,
// awaits all completions, and invokes a continuation with the aggregated
// results — unless a newer batch for the same key supersedes it first.
//
// The scheduling model is single-threaded cooperative (the continuation
// re-enters whatever task owns the caches and registry); Dispatcher itself
// only guards the in-flight-batch bookkeeping, since Call may be invoked
// concurrently for different buffers/features.
type Dispatcher struct {
	logger *slog.Logger
	caller transport.Caller

	mu       sync.Mutex
	inFlight map[BatchKey]string // batch key -> current batch id
}

// NewDispatcher returns a Dispatcher that issues requests through caller.
// If logger is nil, slog.Default() is used.
func NewDispatcher(logger *slog.Logger, caller transport.Caller) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:   logger.With(slog.String("component", "dispatch")),
		caller:   caller,
		inFlight: make(map[BatchKey]string),
	}
}

// begin registers a fresh batch id for key, superseding whatever batch was
// previously in flight for it, and returns a function reporting whether
// that id is still current (i.e. nothing newer has superseded it).
func (d *Dispatcher) begin(key BatchKey) (id string, current func() bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id = uuid.NewString()
	d.inFlight[key] = id
	return id, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.inFlight[key] == id
	}
}

// Call selects the servers in meta.Servers eligible for feature under
// policy, issues method against each according to params, awaits every
// response, and invokes k with the aggregated, registry-ordered results —
// unless a request for the same (meta.Buffile, feature) supersedes this
// batch before k would run, in which case k is never called.
//
// Retry-with-widened-range (code actions) must reuse the same BatchKey the
// original call used, so its own superseding logic still protects the
// retry; callers implementing that pattern construct the key once and pass
// it to CallWithKey instead of Call.
func Call[P, R any](
	ctx context.Context,
	d *Dispatcher,
	reg *registry.Registry,
	meta EditorMeta,
	feature registry.Feature,
	policy registry.Policy,
	method string,
	params RequestParams[P],
	k func([]ServerResult[R]),
) {
	CallWithKey(ctx, d, reg, meta, BatchKey{Buffile: meta.Buffile, Feature: feature}, feature, policy, method, params, k)
}

// CallWithKey is Call with an explicit BatchKey, for callers (code-action
// retry) that must keep one cancellation identity across two dispatches.
func CallWithKey[P, R any](
	ctx context.Context,
	d *Dispatcher,
	reg *registry.Registry,
	meta EditorMeta,
	key BatchKey,
	feature registry.Feature,
	policy registry.Policy,
	method string,
	params RequestParams[P],
	k func([]ServerResult[R]),
) {
	id, current := d.begin(key)

	var eligible []registry.Entry
	for _, e := range reg.Servers(meta.Servers) {
		if registry.AttemptServerCapability(e.ID, e.Settings, feature, policy) {
			eligible = append(eligible, e)
		}
	}

	var results []ServerResult[R]
	if params.IsEach() {
		results = dispatchEach[P, R](ctx, d, eligible, method, params.each)
	} else {
		results = dispatchAll[P, R](ctx, d, eligible, method, params.all)
	}

	if !current() {
		d.logger.Debug("dispatch batch superseded; dropping continuation",
			slog.String("buffile", meta.Buffile), slog.String("batch", id))
		return
	}
	k(results)
}

func dispatchAll[P, R any](ctx context.Context, d *Dispatcher, entries []registry.Entry, method string, payloads []P) []ServerResult[R] {
	results := make([]ServerResult[R], len(entries))
	for i, e := range entries {
		results[i] = ServerResult[R]{Server: e.ID}
	}
	if len(payloads) == 0 || len(entries) == 0 {
		return results
	}
	payload := payloads[0]

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			var r R
			if err := d.caller.Call(gctx, e.ID, method, payload, &r); err != nil {
				d.logger.Warn("request failed",
					slog.String("server", string(e.ID)), slog.String("method", method), slog.Any("error", err))
				return nil
			}
			results[i].Value = &r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func dispatchEach[P, R any](ctx context.Context, d *Dispatcher, entries []registry.Entry, method string, each map[registry.ServerId][]P) []ServerResult[R] {
	var results []ServerResult[R]
	type job struct {
		idx    int
		server registry.ServerId
		param  P
	}
	var jobs []job
	for _, e := range entries {
		payloads, ok := each[e.ID]
		if !ok {
			continue
		}
		for _, p := range payloads {
			jobs = append(jobs, job{idx: len(results), server: e.ID, param: p})
			results = append(results, ServerResult[R]{Server: e.ID})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			var r R
			if err := d.caller.Call(gctx, j.server, method, j.param, &r); err != nil {
				d.logger.Warn("request failed",
					slog.String("server", string(j.server)), slog.String("method", method), slog.Any("error", err))
				return nil
			}
			results[j.idx].Value = &r
			return nil
		})
	}
	_ = g.Wait()
	return results
}
