package routing

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Router wraps chi.Router with a few helpers. Modules receive one through
// their Routes provider.
type Router struct {
	mux chi.Router
	// prefix → sub-router already mounted on mux
	subs map[string]*Router
}

// Option configures the root router.
type Option func(*options)

type options struct {
	log     *zerolog.Logger
	origins []string
}

// WithAccessLog logs every request through l.
func WithAccessLog(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithCORS enables CORS for the given origins. No origins, no CORS.
func WithCORS(origins ...string) Option {
	return func(o *options) { o.origins = origins }
}

// New creates a Router with sane defaults (Recoverer, RealIP, RequestID).
func New(opts ...Option) *Router {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if o.log != nil {
		r.Use(AccessLog(*o.log))
	}
	r.Use(middleware.Recoverer)
	if len(o.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: o.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
	return &Router{mux: r}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's path.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix runs fn against a group of the sub-router mounted under pattern.
// The sub-router is created on first use and shared by later calls with
// the same pattern, so several modules can contribute to one prefix. Each
// call gets its own group and middleware stack.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	key := strings.TrimSuffix(pattern, "/")
	sub, ok := r.subs[key]
	if !ok {
		sub = &Router{mux: chi.NewRouter()}
		r.mux.Mount(key, sub.mux)
		if r.subs == nil {
			r.subs = make(map[string]*Router)
		}
		r.subs[key] = sub
	}
	sub.Group(fn)
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// AccessLog logs method, path, status, elapsed time and bytes written.
func AccessLog(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("elapsed", time.Since(start)).
				Int("bytes", ww.BytesWritten()).
				Msg("request done")
		})
	}
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.Server.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
