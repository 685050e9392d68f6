// Package refresh keeps a laid-out snapshot of the backend hierarchy up to
// date.
//
// A [Refresher] fetches raw records on a fixed interval and on demand, runs
// them through a [BuildFunc] and publishes the result as a [Snapshot].
// Refreshes may overlap; each one takes a sequence number when it starts
// and its result is applied only if no later refresh has been applied and
// the selector has not changed in the meantime. Late responses are
// therefore dropped instead of overwriting newer data.
//
//	r := refresh.New(refresh.Options{Fetcher: client, Build: build, Selector: "courses"})
//	go r.Run(ctx)
//	snaps, stop := r.Subscribe()
//	defer stop()
//	for s := range snaps {
//	    draw(s.Graph)
//	}
package refresh

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/observability"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 30 * time.Second

// Fetcher returns the raw records behind a selector.
type Fetcher interface {
	Fetch(ctx context.Context, selector string) ([]byte, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, selector string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, selector string) ([]byte, error) {
	return f(ctx, selector)
}

// BuildFunc turns fetched records into a graph.
type BuildFunc func(ctx context.Context, data []byte, selector string) (graph.Graph, error)

// Snapshot is one published state of the hierarchy.
type Snapshot struct {
	Seq       uint64      `json:"seq"`
	Selector  string      `json:"selector"`
	Graph     graph.Graph `json:"graph"`
	FetchedAt time.Time   `json:"fetchedAt"`

	// Err is set when the latest refresh failed. Graph then still holds the
	// last good result, if any.
	Err error `json:"-"`
}

// Failed reports whether the latest refresh failed.
func (s Snapshot) Failed() bool { return s.Err != nil }

// Options configures a [Refresher].
type Options struct {
	Fetcher  Fetcher
	Build    BuildFunc
	Selector string
	Interval time.Duration // 0 means DefaultInterval
	Logger   *log.Logger   // nil discards
}

// Refresher schedules refreshes and owns the current snapshot.
type Refresher struct {
	fetch    Fetcher
	build    BuildFunc
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu         sync.Mutex
	selector   string
	generation uint64
	nextSeq    uint64
	applied    uint64
	current    Snapshot
	hasCurrent bool
	inflight   map[uint64]context.CancelFunc
	subs       map[int]chan Snapshot
	nextSub    int

	wake chan struct{}
}

// New creates a Refresher. It does nothing until [Refresher.Run] or
// [Refresher.Refresh] is called.
func New(opts Options) *Refresher {
	r := &Refresher{
		fetch:    opts.Fetcher,
		build:    opts.Build,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      time.Now,
		selector: opts.Selector,
		inflight: make(map[uint64]context.CancelFunc),
		subs:     make(map[int]chan Snapshot),
		wake:     make(chan struct{}, 1),
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return r
}

// Interval returns the polling period.
func (r *Refresher) Interval() time.Duration { return r.interval }

// Selector returns the active selector.
func (r *Refresher) Selector() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selector
}

// Current returns the latest applied snapshot. ok is false before the first
// refresh of the active selector completes.
func (r *Refresher) Current() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.hasCurrent
}

// Refresh fetches and builds once.
//
// The returned applied flag is false when the result was discarded because
// a later refresh was applied first, the selector changed, or the refresh
// was cancelled. A fetch or build failure is applied (it marks the
// snapshot as failed) and also returned as the error.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, bool, error) {
	r.mu.Lock()
	r.nextSeq++
	seq := r.nextSeq
	gen := r.generation
	sel := r.selector
	fctx, cancel := context.WithCancel(ctx)
	r.inflight[seq] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, seq)
		r.mu.Unlock()
		cancel()
	}()

	hooks := observability.Refresh()
	hooks.OnFetchStart(ctx, sel, seq)
	start := r.now()
	data, err := r.fetch.Fetch(fctx, sel)
	hooks.OnFetchComplete(ctx, sel, seq, len(data), r.now().Sub(start), err)

	var g graph.Graph
	if err == nil {
		g, err = r.build(fctx, data, sel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fctx.Err() != nil || gen != r.generation || seq <= r.applied {
		hooks.OnApply(ctx, sel, seq, false)
		r.logger.Debug("discarded refresh", "selector", sel, "seq", seq, "applied", r.applied)
		if ctx.Err() != nil {
			return Snapshot{}, false, ctx.Err()
		}
		return Snapshot{}, false, nil
	}

	r.applied = seq
	for s, c := range r.inflight {
		if s < seq {
			c()
		}
	}

	snap := Snapshot{Seq: seq, Selector: sel, FetchedAt: r.now()}
	if err != nil {
		snap.Graph = r.current.Graph
		if !r.hasCurrent {
			snap.Graph = graph.Empty()
		}
		snap.Err = err
		r.logger.Warn("could not refresh structure", "selector", sel, "seq", seq, "err", err)
	} else {
		snap.Graph = g
		r.logger.Debug("refreshed", "selector", sel, "seq", seq, "nodes", len(g.Nodes))
	}
	r.current = snap
	r.hasCurrent = true
	r.publishLocked(snap)
	hooks.OnApply(ctx, sel, seq, true)
	return snap, true, err
}

// Select switches to another selector. Outstanding refreshes are cancelled
// and their results discarded, the current snapshot is cleared, and a
// running [Refresher.Run] loop refreshes immediately.
func (r *Refresher) Select(selector string) {
	r.mu.Lock()
	r.selector = selector
	r.generation++
	for _, c := range r.inflight {
		c()
	}
	r.current = Snapshot{}
	r.hasCurrent = false
	r.publishLocked(Snapshot{Selector: selector, Graph: graph.Empty()})
	r.mu.Unlock()
	r.Trigger()
}

// Trigger asks a running [Refresher.Run] loop to refresh now. It never
// blocks; triggers arriving while one is pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on every tick or trigger until ctx is
// done. Refresh failures are recorded on the snapshot and do not stop the
// loop. It returns ctx.Err().
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.logger.Debug("refresh failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-r.wake:
			ticker.Reset(r.interval)
		}
	}
}

// Subscribe returns a channel receiving every applied snapshot and a
// function that ends the subscription. Delivery is latest-only: a slow
// reader sees the newest snapshot, never a backlog. The current snapshot,
// if any, is delivered right away.
func (r *Refresher) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	if r.hasCurrent {
		ch <- r.current
	}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// publishLocked replaces whatever is pending in each subscriber's buffer.
// Sends are serialized by r.mu, so after draining the send cannot block.
func (r *Refresher) publishLocked(s Snapshot) {
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
