package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// gatedFetcher blocks call i until gates[i] receives a body.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	gates   []chan []byte
	started chan int
}

func newGatedFetcher(n int) *gatedFetcher {
	f := &gatedFetcher{started: make(chan int, n)}
	for range n {
		f.gates = append(f.gates, make(chan []byte, 1))
	}
	return f
}

func (f *gatedFetcher) Fetch(ctx context.Context, selector string) ([]byte, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()
	f.started <- i
	select {
	case data := <-f.gates[i]:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// echoBuild makes a one-node graph whose node id is the fetched body.
func echoBuild(_ context.Context, data []byte, selector string) (graph.Graph, error) {
	if string(data) == "bad" {
		return graph.Graph{}, errors.New("cannot lay out")
	}
	g := graph.Empty()
	g.Nodes = append(g.Nodes, graph.PositionedNode{ID: string(data), Kind: hierarchy.KindCourse})
	return g, nil
}

func staticFetcher(body string) FetcherFunc {
	return func(context.Context, string) ([]byte, error) { return []byte(body), nil }
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

type outcome struct {
	snap    Snapshot
	applied bool
	err     error
}

func refreshAsync(r *Refresher) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		s, ok, err := r.Refresh(context.Background())
		ch <- outcome{s, ok, err}
	}()
	return ch
}

func TestRefreshApplies(t *testing.T) {
	r := New(Options{Fetcher: staticFetcher("course:1"), Build: echoBuild, Selector: "courses"})

	if _, ok := r.Current(); ok {
		t.Error("Current should be empty before the first refresh")
	}
	snap, applied, err := r.Refresh(context.Background())
	if err != nil || !applied {
		t.Fatalf("Refresh = %v, %v", applied, err)
	}
	if snap.Seq != 1 || snap.Selector != "courses" || snap.FetchedAt.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
	cur, ok := r.Current()
	if !ok || cur.Graph.Nodes[0].ID != "course:1" {
		t.Errorf("Current = %+v, %v", cur, ok)
	}
	if r.Interval() != DefaultInterval {
		t.Errorf("Interval = %v, want %v", r.Interval(), DefaultInterval)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	f := newGatedFetcher(2)
	r := New(Options{Fetcher: f, Build: echoBuild, Selector: "courses"})

	first := refreshAsync(r)
	wait(t, f.started)
	second := refreshAsync(r)
	wait(t, f.started)

	// The newer request completes first.
	f.gates[1] <- []byte("new")
	got := wait(t, second)
	if !got.applied || got.err != nil || got.snap.Seq != 2 {
		t.Fatalf("second refresh = %+v", got)
	}

	f.gates[0] <- []byte("old")
	late := wait(t, first)
	if late.applied {
		t.Error("older response must not be applied after a newer one")
	}
	if late.err != nil {
		t.Errorf("discarded refresh should not report an error, got %v", late.err)
	}

	cur, _ := r.Current()
	if cur.Seq != 2 || cur.Graph.Nodes[0].ID != "new" {
		t.Errorf("Current = seq %d, node %s; want seq 2, node new", cur.Seq, cur.Graph.Nodes[0].ID)
	}
}

func TestSelectCancelsInFlight(t *testing.T) {
	f := newGatedFetcher(1)
	r := New(Options{Fetcher: f, Build: echoBuild, Selector: "courses"})

	pending := refreshAsync(r)
	wait(t, f.started)
	r.Select("professors")

	got := wait(t, pending)
	if got.applied {
		t.Error("refresh for the old selector must be discarded")
	}
	if _, ok := r.Current(); ok {
		t.Error("Select should clear the current snapshot")
	}
	if r.Selector() != "professors" {
		t.Errorf("Selector = %q", r.Selector())
	}
}

func TestSelectClearsSnapshot(t *testing.T) {
	var seen []string
	fetch := FetcherFunc(func(_ context.Context, sel string) ([]byte, error) {
		seen = append(seen, sel)
		return []byte(sel), nil
	})
	r := New(Options{Fetcher: fetch, Build: echoBuild, Selector: "courses"})
	r.Refresh(context.Background())
	r.Select("professors")
	snap, applied, _ := r.Refresh(context.Background())

	if !applied || snap.Selector != "professors" || snap.Graph.Nodes[0].ID != "professors" {
		t.Errorf("refresh after Select = %+v", snap)
	}
	if len(seen) != 2 || seen[1] != "professors" {
		t.Errorf("fetched selectors = %v", seen)
	}
}

func TestFailureKeepsPreviousGraph(t *testing.T) {
	body := "course:1"
	fetch := FetcherFunc(func(context.Context, string) ([]byte, error) { return []byte(body), nil })
	r := New(Options{Fetcher: fetch, Build: echoBuild})

	r.Refresh(context.Background())
	body = "bad"
	snap, applied, err := r.Refresh(context.Background())
	if err == nil || !applied {
		t.Fatalf("failed refresh = %v, %v", applied, err)
	}
	if !snap.Failed() || snap.Graph.Nodes[0].ID != "course:1" {
		t.Errorf("failed snapshot should keep the last graph, got %+v", snap)
	}

	body = "course:2"
	snap, _, _ = r.Refresh(context.Background())
	if snap.Failed() {
		t.Error("a successful refresh should clear the failure")
	}
}

func TestFetchFailureWithoutPreviousGraph(t *testing.T) {
	fetch := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("backend down")
	})
	r := New(Options{Fetcher: fetch, Build: echoBuild})
	snap, applied, err := r.Refresh(context.Background())
	if err == nil || !applied {
		t.Fatalf("Refresh = %v, %v", applied, err)
	}
	if snap.Graph.Nodes == nil || len(snap.Graph.Nodes) != 0 {
		t.Errorf("graph should be empty, got %+v", snap.Graph)
	}
}

func TestRefreshCancelledContext(t *testing.T) {
	r := New(Options{Fetcher: newGatedFetcher(1), Build: echoBuild})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, applied, err := r.Refresh(ctx)
	if applied || !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh = %v, %v; want discarded with context.Canceled", applied, err)
	}
}

func TestSubscribeLatestOnly(t *testing.T) {
	n := 0
	fetch := FetcherFunc(func(context.Context, string) ([]byte, error) {
		n++
		return []byte{byte('a' + n)}, nil
	})
	r := New(Options{Fetcher: fetch, Build: echoBuild})
	snaps, stop := r.Subscribe()
	defer stop()

	for range 3 {
		r.Refresh(context.Background())
	}
	got := wait(t, snaps)
	if got.Seq != 3 {
		t.Errorf("subscriber got seq %d, want 3", got.Seq)
	}
	select {
	case s := <-snaps:
		t.Errorf("unexpected backlog snapshot %d", s.Seq)
	default:
	}
}

func TestSubscribeDeliversCurrent(t *testing.T) {
	r := New(Options{Fetcher: staticFetcher("x"), Build: echoBuild})
	r.Refresh(context.Background())

	snaps, stop := r.Subscribe()
	if got := wait(t, snaps); got.Seq != 1 {
		t.Errorf("initial snapshot seq = %d", got.Seq)
	}
	stop()
	stop() // idempotent
	if _, open := <-snaps; open {
		t.Error("channel should be closed after stop")
	}
}

func TestRunLoop(t *testing.T) {
	r := New(Options{Fetcher: staticFetcher("x"), Build: echoBuild, Interval: time.Hour})
	snaps, stop := r.Subscribe()
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if s := wait(t, snaps); s.Seq != 1 {
		t.Errorf("first snapshot seq = %d", s.Seq)
	}
	r.Trigger()
	if s := wait(t, snaps); s.Seq != 2 {
		t.Errorf("triggered snapshot seq = %d", s.Seq)
	}

	cancel()
	if err := wait(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}
