// Package httputil fetches remote data files with retries.
//
// [Get] downloads a URL and classifies failures: transport errors, 429 and
// 5xx responses are wrapped with [Retryable] and attempted again by
// [Retry]; any other non-2xx status fails immediately.
//
//	data, err := httputil.Get(ctx, nil, "https://example.com/world-110m.json")
//
// Each request emits [observability.HTTPHooks] events.
package httputil
