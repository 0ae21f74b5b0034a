package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vizlab/pkg/observability"
)

// logHooks logs pipeline and cache events at debug level. Handlers that put
// a request logger in the context get their events tagged with it.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.PipelineHooks = (*logHooks)(nil)
	_ observability.CacheHooks    = (*logHooks)(nil)
)

func (h *logHooks) log(ctx context.Context) *log.Logger {
	return loggerFrom(ctx, h.logger)
}

func (h *logHooks) OnLoadStart(ctx context.Context, src string) {
	h.log(ctx).Debug("load start", "source", src)
}

func (h *logHooks) OnLoadComplete(ctx context.Context, src string, count int, d time.Duration, err error) {
	if err != nil {
		h.log(ctx).Debug("load failed", "source", src, "err", err)
		return
	}
	h.log(ctx).Debug("load done", "source", src, "count", count, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnLayoutStart(ctx context.Context, chart string, nodes int) {
	h.log(ctx).Debug("layout start", "chart", chart, "nodes", nodes)
}

func (h *logHooks) OnLayoutComplete(ctx context.Context, chart string, d time.Duration, err error) {
	h.log(ctx).Debug("layout done", "chart", chart, "duration", d.Round(time.Millisecond), "err", err)
}

func (h *logHooks) OnRenderStart(ctx context.Context, chart string, formats []string) {
	h.log(ctx).Debug("render start", "chart", chart, "formats", formats)
}

func (h *logHooks) OnRenderComplete(ctx context.Context, chart string, formats []string, d time.Duration, err error) {
	h.log(ctx).Debug("render done", "chart", chart, "formats", formats, "duration", d.Round(time.Millisecond), "err", err)
}

func (h *logHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.log(ctx).Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.log(ctx).Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.log(ctx).Debug("cache set", "type", keyType, "bytes", size)
}
