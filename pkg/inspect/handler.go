package inspect

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/store/internal/errors"
)

// maxBodyBytes bounds PUT bodies.
const maxBodyBytes = 1 << 20

// Option configures the handler.
type Option func(*handler)

// WithGatherer serves g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *handler) {
		h.gatherer = g
	}
}

// WithLogger sets the logger. Default: slog.Default() with component=inspect.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		h.logger = logger
	}
}

// WithCheckOrigin sets the WebSocket origin check. Default: same origin only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithWriteTimeout bounds each WebSocket write. Default: 10 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *handler) {
		h.writeTimeout = d
	}
}

// WithWatchBuffer sets how many undelivered values a watch connection may
// queue before it is closed as too slow. Default: 64.
func WithWatchBuffer(n int) Option {
	return func(h *handler) {
		h.watchBuffer = n
	}
}

type handler struct {
	reg          *Registry
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	watchBuffer  int
}

// Handler returns an http.Handler serving reg.
func Handler(reg *Registry, opts ...Option) http.Handler {
	h := &handler{
		reg:          reg,
		writeTimeout: 10 * time.Second,
		watchBuffer:  64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "inspect")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/stores", h.list)
	r.Get("/stores/{name}", h.get)
	r.Put("/stores/{name}", h.put)
	r.Get("/stores/{name}/watch", h.watch)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// storeInfo is one element of the GET /stores response.
type storeInfo struct {
	Name     string `json:"name"`
	Writable bool   `json:"writable"`
	Value    any    `json:"value"`
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	names := h.reg.Names()
	out := make([]storeInfo, 0, len(names))
	for _, name := range names {
		e, ok := h.reg.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, storeInfo{Name: e.Name, Writable: e.Writable(), Value: e.Source.GetAny()})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, storeInfo{Name: e.Name, Writable: e.Writable(), Value: e.Source.GetAny()})
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !e.Writable() {
		h.writeError(w, http.StatusMethodNotAllowed, errors.New("I002").WithDetailf("store %q", e.Name))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("P002").Wrap(err))
		return
	}
	if err := e.setter.SetJSON(body); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.FromError(err, "P002"))
		return
	}

	h.logger.Info("store updated", "store", e.Name, "remote", r.RemoteAddr)
	h.writeJSON(w, http.StatusOK, storeInfo{Name: e.Name, Writable: true, Value: e.Source.GetAny()})
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	name := chi.URLParam(r, "name")
	e, ok := h.reg.Lookup(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, errors.New("I001").WithDetailf("store %q", name))
		return nil, false
	}
	return e, true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, errors.New("P001").Wrap(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *handler) writeError(w http.ResponseWriter, status int, err *errors.Error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(err.FormatJSON())
}
