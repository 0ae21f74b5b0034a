package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vizlab/pkg/cache"
	vizerrors "github.com/matzehuels/vizlab/pkg/errors"
	"github.com/matzehuels/vizlab/pkg/geo"
	"github.com/matzehuels/vizlab/pkg/pipeline"
	"github.com/matzehuels/vizlab/pkg/render"
)

const (
	headerRequestID = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
	contentTypeSVG  = "image/svg+xml"
	contentTypeJSON = "application/json"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags chartFlags
		mf    mapFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the charts over HTTP",
		Long: `Serve the charts over HTTP.

Routes:
  GET /              index page with the three charts
  GET /tree.svg      linkage tree
  GET /pack.svg      circle pack
  GET /map.svg       world map; k, x and y set the zoom transform
  GET /aggregate     mean streams as JSON (?hierarchy=1 for the hierarchy)
  GET /healthz       health check

Inputs come from the config file and flags; requests cannot name files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			opts := cfg.options()
			flags.apply(cmd.Flags(), &opts)
			if err := mf.apply(cmd.Flags(), &opts); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg.Server, opts, flags.noCache)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	flags.register(fs, "ignored; the server always renders svg")
	mf.register(fs)
	_ = fs.MarkHidden("output")
	_ = fs.MarkHidden("format")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg ServerConfig, opts pipeline.Options, noCache bool) error {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	var keyer cache.Keyer
	if cfg.CachePrefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.CachePrefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	s := newServer(runner, opts, c.Logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	c.Logger.Info("listening", "addr", "http://"+cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server renders charts on request. Options are fixed at startup; the
// runner's cache makes repeated requests cheap.
type server struct {
	runner *pipeline.Runner
	opts   pipeline.Options
	logger *log.Logger
}

func newServer(runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger) *server {
	opts.Formats = []string{render.FormatSVG}
	return &server{runner: runner, opts: opts, logger: logger}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/", s.handleIndex)
	r.Get("/tree.svg", s.handleHierarchyChart(pipeline.ChartTree))
	r.Get("/pack.svg", s.handleHierarchyChart(pipeline.ChartPack))
	r.Get("/map.svg", s.handleMap)
	r.Get("/aggregate", s.handleAggregate)
	r.Get("/healthz", s.handleHealth)
	return r
}

// requestID tags each request with an ID, taken from X-Request-ID or
// generated, and attaches a logger carrying it to the context.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		l := s.logger.With("request_id", id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), l)))
		l.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *server) options(r *http.Request, chart string) pipeline.Options {
	opts := s.opts
	opts.Charts = []string{chart}
	opts.Logger = loggerFromContext(r.Context())
	return opts
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := writePage(w, "vizlab", pipeline.Charts, func(chart string) pageChart {
		return pageChart{Src: "/" + chart + ".svg"}
	})
	if err != nil {
		loggerFromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *server) handleHierarchyChart(chart string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.options(r, chart)
		if e := r.URL.Query().Get("engine"); e != "" && chart == pipeline.ChartTree {
			opts.Engine = e
		}
		res, err := s.runner.RunHierarchy(r.Context(), opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeBody(w, contentTypeSVG, res.Charts[chart].Artifacts[render.FormatSVG])
	}
}

func (s *server) handleMap(w http.ResponseWriter, r *http.Request) {
	opts := s.options(r, pipeline.ChartMap)
	t, ok, err := zoomQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ok {
		opts.Zoom = &t
	}
	res, err := s.runner.RunMap(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, contentTypeSVG, res.Chart.Artifacts[render.FormatSVG])
}

func (s *server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.BuildHierarchy(r.Context(), s.options(r, pipeline.ChartTree))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var v any = res.Nested
	if want, _ := strconv.ParseBool(r.URL.Query().Get("hierarchy")); want {
		v = res.Root
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// zoomQuery reads k, x and y. ok is false when none is present; missing
// ones default to the identity transform's values.
func zoomQuery(r *http.Request) (t geo.Transform, ok bool, err error) {
	q := r.URL.Query()
	t = geo.Identity
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"k", &t.K}, {"x", &t.X}, {"y", &t.Y}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return t, false, vizerrors.New(vizerrors.ErrCodeInvalidInput, "invalid %s: %q", p.name, raw)
		}
		*p.dst = v
		ok = true
	}
	return t, ok, nil
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	l := loggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		l.Warn("request rejected", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{
		Error:     vizerrors.UserMessage(err),
		Code:      string(vizerrors.GetCode(err)),
		RequestID: w.Header().Get(headerRequestID),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case vizerrors.IsDataFetch(err):
		return http.StatusBadGateway
	}
	switch vizerrors.GetCode(err) {
	case vizerrors.ErrCodeInvalidInput, vizerrors.ErrCodeInvalidFormat, vizerrors.ErrCodeInvalidStyle,
		vizerrors.ErrCodeInvalidProjection, vizerrors.ErrCodeInvalidPolicy, vizerrors.ErrCodeInvalidCanvas:
		return http.StatusBadRequest
	case vizerrors.ErrCodeEmptyHierarchy, vizerrors.ErrCodeInvalidRecord, vizerrors.ErrCodeInvalidBoundary:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}
