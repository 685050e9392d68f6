package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/cursograph/pkg/buildinfo"
	cgerrors "github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/refresh"
)

// Response headers set by POST /v1/layout.
const (
	HeaderCache      = "X-Cache"
	HeaderSourceHash = "X-Source-Hash"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// handleLayout lays out the records in the request body. Query parameters:
// shape (auto, course, professor), centering (first-last, mean) and format
// (json by default, or any render format).
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts := s.layout
	q := r.URL.Query()
	if v := q.Get("shape"); v != "" {
		shape, err := hierarchy.ParseShape(v)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Shape = shape
	}
	if v := q.Get("centering"); v != "" {
		mode, err := layout.ParseCentering(v)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Centering = mode
	}
	format := q.Get("format")
	if format == "" {
		format = graph.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, cgerrors.New(cgerrors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, cgerrors.Wrap(cgerrors.ErrCodeInvalidInput, err, "read request body"))
		return
	}

	res, err := s.runner.Build(r.Context(), data, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set(HeaderSourceHash, res.SourceHash)
	if res.CacheHit {
		w.Header().Set(HeaderCache, "HIT")
	} else {
		w.Header().Set(HeaderCache, "MISS")
	}
	s.writeGraph(w, r, res.Graph, format)
}

// writeGraph encodes g in format. JSON formats are written directly; the
// rest go through the runner's artifact cache.
func (s *Server) writeGraph(w http.ResponseWriter, r *http.Request, g graph.Graph, format string) {
	switch format {
	case graph.FormatJSON:
		writeJSON(w, http.StatusOK, g)
		return
	case graph.FormatFlow:
		writeJSON(w, http.StatusOK, graph.ToFlow(g))
		return
	}
	out, err := s.runner.Render(r.Context(), g, pipeline.RenderOptions{Format: format})
	if err != nil {
		writeError(w, err)
		return
	}
	writeBytes(w, contentTypes[format], out)
}

// snapshotBody is the JSON shape of a published snapshot.
type snapshotBody struct {
	Seq       uint64      `json:"seq"`
	Selector  string      `json:"selector"`
	FetchedAt time.Time   `json:"fetchedAt"`
	Graph     graph.Graph `json:"graph"`
	Applied   *bool       `json:"applied,omitempty"`
	Error     *errorBody  `json:"error,omitempty"`
}

func snapshotJSON(snap refresh.Snapshot) snapshotBody {
	body := snapshotBody{
		Seq:       snap.Seq,
		Selector:  snap.Selector,
		FetchedAt: snap.FetchedAt,
		Graph:     snap.Graph,
	}
	if snap.Failed() {
		code := cgerrors.GetCode(snap.Err)
		if code == "" {
			code = cgerrors.ErrCodeInternal
		}
		e := bodyFor(code, snap.Err)
		body.Error = &e
	}
	return body
}

// current returns the latest snapshot, or writes an error and returns false
// when polling is disabled or nothing has loaded yet.
func (s *Server) current(w http.ResponseWriter) (refresh.Snapshot, bool) {
	if s.refresher == nil {
		writeError(w, cgerrors.New(cgerrors.ErrCodeUnsupported, "polling is not configured"))
		return refresh.Snapshot{}, false
	}
	snap, ok := s.refresher.Current()
	if !ok {
		writeError(w, cgerrors.New(cgerrors.ErrCodeNotFound, "structure for %q has not loaded yet", s.refresher.Selector()))
		return refresh.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshotJSON(snap))
}

func (s *Server) handleGraphFlow(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	s.writeGraph(w, r, snap.Graph, graph.FormatFlow)
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.current(w)
	if !ok {
		return
	}
	s.writeGraph(w, r, snap.Graph, graph.FormatSVG)
}

// handleRefresh runs one refresh synchronously. A refresh overtaken by a
// newer one reports applied=false with the current snapshot.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, cgerrors.New(cgerrors.ErrCodeUnsupported, "polling is not configured"))
		return
	}
	snap, applied, err := s.refresher.Refresh(r.Context())
	if err != nil && !applied {
		writeError(w, cgerrors.Wrap(cgerrors.ErrCodeTimeout, err, "refresh cancelled"))
		return
	}
	if !applied {
		cur, ok := s.refresher.Current()
		if !ok {
			cur.Selector, cur.Graph = s.refresher.Selector(), graph.Empty()
		}
		snap = cur
	}
	body := snapshotJSON(snap)
	body.Applied = &applied
	status := http.StatusOK
	if snap.Failed() && applied {
		status = statusFor(body.Error.Code)
	}
	writeJSON(w, status, body)
}

// handleSelect switches the polled selector. The switch cancels in-flight
// refreshes; the new structure loads asynchronously.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, cgerrors.New(cgerrors.ErrCodeUnsupported, "polling is not configured"))
		return
	}
	name := chi.URLParam(r, "name")
	sel, err := s.selectors.Lookup(name)
	if err != nil {
		writeError(w, err)
		return
	}
	s.refresher.Select(sel.Name)
	s.logger.Info("selector switched", "selector", sel.Name)
	writeJSON(w, http.StatusAccepted, map[string]string{"selector": sel.Name, "path": sel.Path, "shape": string(sel.Shape)})
}
