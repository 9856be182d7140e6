// Package orders is a sample module that imports billing and shares its
// Invoicer instance.
package orders

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/events"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
	"github.com/km-arc/go-ioc/internal/billing"
)

// Order is a placed order and its invoice.
type Order struct {
	Item    string          `json:"item"`
	Invoice billing.Invoice `json:"invoice"`
}

// Service places orders and bills them through the shared Invoicer.
type Service struct {
	inv *billing.Invoicer
}

func NewService(inv *billing.Invoicer) *Service { return &Service{inv: inv} }

// Invoicer returns the injected billing Invoicer.
func (s *Service) Invoicer() *billing.Invoicer { return s.inv }

func (s *Service) Place(ctx context.Context, customer, item string, amount int) (Order, error) {
	if item == "" {
		return Order{}, errors.New("orders: item is required")
	}
	inv, err := s.inv.Issue(ctx, customer, amount)
	if err != nil {
		return Order{}, err
	}
	return Order{Item: item, Invoice: inv}, nil
}

// ── Listener ─────────────────────────────────────────────────────────────────

// Audit records every issued invoice.
type Audit struct {
	mu   sync.Mutex
	log  zerolog.Logger
	seen []billing.Invoice
}

func NewAudit(log zerolog.Logger) *Audit { return &Audit{log: log} }

func (a *Audit) Handle(_ context.Context, e events.Event) error {
	inv, ok := e.Payload.(billing.Invoice)
	if !ok {
		return nil
	}
	a.mu.Lock()
	a.seen = append(a.seen, inv)
	a.mu.Unlock()
	a.log.Info().Int64("invoice", inv.Number).Str("customer", inv.Customer).Msg("invoice audited")
	return nil
}

// Seen returns the audited invoices.
func (a *Audit) Seen() []billing.Invoice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]billing.Invoice(nil), a.seen...)
}

// ── Routes ───────────────────────────────────────────────────────────────────

// Routes serves POST /orders.
type Routes struct {
	svc *Service
}

func NewRoutes(svc *Service) *Routes { return &Routes{svc: svc} }

func (rt *Routes) MountRoutes(r *routing.Router) {
	r.Post("/", rt.place)
}

func (rt *Routes) place(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	var body struct {
		Customer string `json:"customer"`
		Item     string `json:"item"`
		Amount   int    `json:"amount"`
	}
	if err := req.Bind(&body); err != nil {
		res.BadRequest(err.Error())
		return
	}
	o, err := rt.svc.Place(r.Context(), body.Customer, body.Item, body.Amount)
	if err != nil {
		res.Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	res.Created(o)
}

// ── Module ───────────────────────────────────────────────────────────────────

// Module is the orders module class.
type Module struct{}

// Name is the registered module name.
const Name = "Orders"

// Ref is the orders module reference.
var Ref = container.TypeOf[*Module]()

// Define records orders' classes and module descriptor in store. billing
// must be defined in the same store.
func Define(store *container.Store) {
	store.Define(
		container.Class[*Service](NewService),
		container.Class[*Audit](NewAudit).
			Tag(events.Capability).
			Mark(events.Capability, events.On{Event: billing.InvoiceIssued}),
		container.Class[*Routes](NewRoutes).
			Tag(routing.Capability).
			Mark(routing.Capability, routing.Mount{Prefix: "/orders"}),
	)
	store.DefineModule(Ref, container.ModuleDescriptor{
		Name: Name,
		Providers: []any{
			container.TypeOf[*Service](),
			container.TypeOf[*Audit](),
			container.TypeOf[*Routes](),
		},
		Imports: []container.Token{billing.Ref},
		Exports: []container.Token{container.TypeOf[*Service]()},
	})
}
