package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-ioc/framework/capability"
	"github.com/km-arc/go-ioc/framework/commands"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/events"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/logger"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
)

// Booter is implemented by module classes that need a startup hook once
// every capability has been loaded.
type Booter interface {
	Boot(ctx context.Context) error
}

// Option configures New.
type Option func(*options)

type options struct {
	envFiles []string
	cfg      *config.Config
	log      *zerolog.Logger
	store    *container.Store
}

// WithEnvFiles sets the .env files config.Load reads.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithConfig skips config.Load and uses cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger replaces the logger built from config.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithStore uses a pre-populated metadata store.
func WithStore(s *container.Store) Option {
	return func(o *options) { o.store = s }
}

// Application is the top-level application. It embeds the Container so
// user code can call app.Resolve(), app.RegisterModule() directly.
type Application struct {
	*container.Container

	ID       string
	Config   *config.Config
	Log      zerolog.Logger
	Loader   *capability.Loader
	Router   *routing.Router
	Commands *commands.Registry
	Events   *events.Bus

	mu     sync.Mutex
	booted bool
}

// New loads configuration, builds the container and registers the
// framework core module.
func New(opts ...Option) (*Application, error) {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	cfg := o.cfg
	if cfg == nil {
		cfg = config.Load(o.envFiles...)
	}

	id := uuid.NewString()
	var log zerolog.Logger
	if o.log != nil {
		log = *o.log
	} else {
		log = logger.New(logger.FromConfig(cfg))
	}
	log = log.With().Str("boot_id", id).Logger()

	c := container.New(o.store,
		container.WithLogger(log),
		container.WithStrict(cfg.Container.Strict),
		container.WithCycleDetection(cfg.Container.DetectCycles),
	)

	routerOpts := []routing.Option{routing.WithAccessLog(log)}
	if len(cfg.HTTP.CORSOrigins) > 0 {
		routerOpts = append(routerOpts, routing.WithCORS(cfg.HTTP.CORSOrigins...))
	}

	a := &Application{
		Container: c,
		ID:        id,
		Config:    cfg,
		Log:       log,
		Router:    routing.New(routerOpts...),
		Commands:  commands.NewRegistry(),
		Events:    events.NewBus(),
	}
	a.Loader = capability.NewLoader(c, capability.WithLogger(log)).Use(
		commands.NewConsumer(a.Commands),
		events.NewConsumer(a.Events),
		routing.NewConsumer(a.Router),
	)

	if err := providers.Register(c, providers.Services{
		Config:   cfg,
		Log:      log,
		Router:   a.Router,
		Commands: a.Commands,
		Events:   a.Events,
	}); err != nil {
		return nil, err
	}

	if a.IsDebug() && !a.IsProduction() {
		a.Router.Get("/_ioc/modules", a.modulesHandler)
	}
	return a, nil
}

// Register registers the modules whose descriptors are attached to refs.
func (a *Application) Register(refs ...container.Token) error {
	for _, ref := range refs {
		if err := a.RegisterModuleRef(ref); err != nil {
			return err
		}
	}
	return nil
}

// Boot loads every capability and then runs Boot on module classes that
// implement Booter, in registration order. A second call is a no-op.
func (a *Application) Boot(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booted {
		return nil
	}

	if err := a.Loader.Load(ctx); err != nil {
		return err
	}

	for _, m := range a.Modules() {
		if m.ClassRef.IsZero() {
			continue
		}
		inst, err := a.Resolve(m.ClassRef, m.Name)
		if err != nil {
			return err
		}
		if b, ok := inst.(Booter); ok {
			if err := b.Boot(ctx); err != nil {
				return err
			}
			a.Log.Debug().Str("module", m.Name).Msg("module booted")
		}
	}

	a.booted = true
	a.Log.Info().Int("modules", len(a.Modules())).Int("commands", len(a.Commands.List())).Msg("application booted")
	return nil
}

// Booted reports whether Boot completed.
func (a *Application) Booted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.booted
}

// Run boots the application (if needed) and serves the router on APP_PORT
// until ctx ends, then shuts the server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+a.Config.App.Port)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", ln.Addr().String()).Str("env", a.Environment()).Msg("http server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }

// IsProduction reports APP_ENV=production. The introspection route is never
// mounted in production, even with APP_DEBUG on.
func (a *Application) IsProduction() bool { return a.Environment() == "production" }
func (a *Application) IsDebug() bool      { return a.Config.App.Debug }

// ── Introspection ────────────────────────────────────────────────────────────

type providerView struct {
	Token      string `json:"token"`
	Kind       string `json:"kind"`
	Scope      string `json:"scope"`
	Capability string `json:"capability,omitempty"`
}

type moduleView struct {
	Name      string         `json:"name"`
	Global    bool           `json:"global"`
	Imports   []string       `json:"imports"`
	Exports   []string       `json:"exports"`
	Providers []providerView `json:"providers"`
}

func (a *Application) modulesHandler(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	mods := a.Modules()
	out := make([]moduleView, 0, len(mods))
	for _, m := range mods {
		v := moduleView{
			Name:      m.Name,
			Global:    m.Global,
			Imports:   tokenStrings(m.Imports),
			Exports:   tokenStrings(m.Exports),
			Providers: make([]providerView, 0, len(m.Providers)),
		}
		for _, d := range m.Providers {
			v.Providers = append(v.Providers, providerView{
				Token:      d.Token.String(),
				Kind:       d.Kind.String(),
				Scope:      d.Scope.String(),
				Capability: d.Capability,
			})
		}
		out = append(out, v)
	}
	res.JSON(http.StatusOK, map[string]any{"boot_id": a.ID, "env": a.Environment(), "data": out})
}

func tokenStrings(toks []container.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.String()
	}
	return out
}
