package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/commands"
	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
	"github.com/km-arc/go-ioc/internal/billing"
	"github.com/km-arc/go-ioc/internal/orders"
)

func main() {
	store := container.NewStore()
	billing.Define(store)
	orders.Define(store)
	defineConsole(store)

	application, err := app.New(app.WithStore(store)) // loads .env automatically
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	// Orders imports Billing, so registering it pulls Billing in as well.
	if err := application.Register(orders.Ref, consoleRef); err != nil {
		application.Log.Fatal().Err(err).Msg("module registration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Log.Fatal().Err(err).Msg("server error")
	}
}

// ── Console module ────────────────────────────────────────────────────────────

type consoleModule struct{}

var consoleRef = container.TypeOf[*consoleModule]()

// pingCommand answers "ping" with "pong" plus any arguments.
type pingCommand struct{}

func (pingCommand) Execute(_ context.Context, args []string) (string, error) {
	return strings.TrimSpace("pong " + strings.Join(args, " ")), nil
}

// chatRoutes exposes POST /chat, dispatching a line such as
// "invoice acme 40" to the registered command.
type chatRoutes struct {
	reg *commands.Registry
}

func (c *chatRoutes) MountRoutes(r *routing.Router) {
	r.Post("/chat", c.chat)
	r.Get("/commands", c.list)
}

func (c *chatRoutes) chat(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	var body struct {
		Text string `json:"text"`
	}
	if err := req.Bind(&body); err != nil {
		res.BadRequest(err.Error())
		return
	}
	fields := strings.Fields(body.Text)
	if len(fields) == 0 {
		res.BadRequest("text is required")
		return
	}
	reply, err := c.reg.Dispatch(r.Context(), fields[0], fields[1:])
	if err != nil {
		res.Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	res.Success(map[string]any{"reply": reply})
}

func (c *chatRoutes) list(w http.ResponseWriter, _ *http.Request) {
	entries := c.reg.List()
	out := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]string{"name": e.Spec.Name, "description": e.Spec.Description, "module": e.Module})
	}
	gohttp.NewResponse(w).Success(out)
}

func defineConsole(store *container.Store) {
	store.Define(
		container.Class[*chatRoutes](func(reg *commands.Registry) *chatRoutes { return &chatRoutes{reg: reg} }).
			Tag(routing.Capability).
			Mark(routing.Capability, routing.Mount{}),
	)
	store.DefineModule(consoleRef, container.ModuleDescriptor{
		Name: "Console",
		Providers: []any{
			container.TypeOf[*chatRoutes](),
			container.ClassProvider{
				Token:      container.TypeOf[pingCommand](),
				UseClass:   container.TypeOf[pingCommand](),
				Capability: commands.Capability,
				Marker:     commands.Spec{Name: "ping", Description: "Reply with pong"},
			},
		},
	})
}
