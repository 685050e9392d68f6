package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event as a debug line (warnings and failures at
// warn level). It implements all hook interfaces, so one value can be
// registered everywhere.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) OnLayoutStart(_ context.Context, shape string, inputBytes int) {
	h.logger.Debug("layout start", "shape", shape, "bytes", inputBytes)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, shape string, nodes, edges int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("layout failed", "shape", shape, "duration", d, "err", err)
		return
	}
	h.logger.Debug("layout done", "shape", shape, "nodes", nodes, "edges", edges, "duration", d)
}

func (h *LogHooks) OnLayoutWarning(_ context.Context, code, nodeID, message string) {
	h.logger.Warn(message, "code", code, "node", nodeID)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string) {
	h.logger.Debug("render start", "format", format)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("render failed", "format", format, "err", err)
		return
	}
	h.logger.Debug("render done", "format", format, "bytes", size, "duration", d)
}

func (h *LogHooks) OnFetchStart(_ context.Context, selector string, seq uint64) {
	h.logger.Debug("fetch start", "selector", selector, "seq", seq)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, selector string, seq uint64, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("fetch failed", "selector", selector, "seq", seq, "err", err)
		return
	}
	h.logger.Debug("fetch done", "selector", selector, "seq", seq, "bytes", size, "duration", d)
}

func (h *LogHooks) OnApply(_ context.Context, selector string, seq uint64, applied bool) {
	if !applied {
		h.logger.Debug("stale refresh discarded", "selector", selector, "seq", seq)
		return
	}
	h.logger.Debug("snapshot applied", "selector", selector, "seq", seq)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ RefreshHooks  = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
