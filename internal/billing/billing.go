// Package billing is a sample module: it issues invoices, exports its
// Invoicer to importers and contributes a command and HTTP routes.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-ioc/framework/commands"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/events"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
)

// InvoiceIssued is published on the event bus for every new invoice.
const InvoiceIssued = "invoice.issued"

// Invoice is an issued invoice.
type Invoice struct {
	Number   int64  `json:"number"`
	Customer string `json:"customer"`
	Amount   int    `json:"amount"`
}

// Invoicer issues invoices with a module-wide sequence.
type Invoicer struct {
	seq atomic.Int64
	bus *events.Bus

	mu     sync.RWMutex
	issued map[int64]Invoice
}

func NewInvoicer(bus *events.Bus) *Invoicer {
	return &Invoicer{bus: bus, issued: make(map[int64]Invoice)}
}

// Issue creates an invoice and publishes InvoiceIssued.
func (i *Invoicer) Issue(ctx context.Context, customer string, amount int) (Invoice, error) {
	if customer == "" || amount <= 0 {
		return Invoice{}, errors.New("billing: customer and a positive amount are required")
	}
	inv := Invoice{Number: i.seq.Add(1), Customer: customer, Amount: amount}
	i.mu.Lock()
	i.issued[inv.Number] = inv
	i.mu.Unlock()
	if err := i.bus.Publish(ctx, events.Event{Name: InvoiceIssued, Payload: inv}); err != nil {
		return inv, err
	}
	return inv, nil
}

// Issued returns how many invoices were issued.
func (i *Invoicer) Issued() int64 { return i.seq.Load() }

// Find returns the invoice with the given number.
func (i *Invoicer) Find(number int64) (Invoice, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	inv, ok := i.issued[number]
	return inv, ok
}

// ── Command ──────────────────────────────────────────────────────────────────

// InvoiceCommand handles "invoice <customer> <amount>".
type InvoiceCommand struct {
	inv *Invoicer
}

func NewInvoiceCommand(inv *Invoicer) *InvoiceCommand { return &InvoiceCommand{inv: inv} }

func (c *InvoiceCommand) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: invoice <customer> <amount>")
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("amount: %w", err)
	}
	inv, err := c.inv.Issue(ctx, args[0], amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("invoice #%d issued to %s for %d", inv.Number, inv.Customer, inv.Amount), nil
}

// ── Routes ───────────────────────────────────────────────────────────────────

// Routes serves POST /billing/invoices and GET /billing/invoices/{number}.
type Routes struct {
	inv *Invoicer
}

func NewRoutes(inv *Invoicer) *Routes { return &Routes{inv: inv} }

func (rt *Routes) MountRoutes(r *routing.Router) {
	r.Post("/invoices", rt.issue)
	r.Get("/invoices/{number}", rt.show)
}

func (rt *Routes) issue(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	var body struct {
		Customer string `json:"customer"`
		Amount   int    `json:"amount"`
	}
	if err := req.Bind(&body); err != nil {
		res.BadRequest(err.Error())
		return
	}
	inv, err := rt.inv.Issue(r.Context(), body.Customer, body.Amount)
	if err != nil {
		res.Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	res.Created(inv)
}

func (rt *Routes) show(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	number, err := strconv.ParseInt(req.RouteParam("number"), 10, 64)
	if err != nil {
		res.BadRequest("invoice number must be an integer")
		return
	}
	inv, ok := rt.inv.Find(number)
	if !ok {
		res.NotFound(fmt.Sprintf("invoice #%d not found", number))
		return
	}
	res.Success(inv)
}

// ── Module ───────────────────────────────────────────────────────────────────

// Module is the billing module class.
type Module struct {
	log zerolog.Logger
}

func NewModule(log zerolog.Logger) *Module { return &Module{log: log} }

func (m *Module) Boot(context.Context) error {
	m.log.Info().Str("module", Name).Msg("billing ready")
	return nil
}

// Name is the registered module name.
const Name = "Billing"

// Ref is the billing module reference.
var Ref = container.TypeOf[*Module]()

// Define records billing's classes and module descriptor in store.
func Define(store *container.Store) {
	store.Define(
		container.Class[*Module](NewModule),
		container.Class[*Invoicer](NewInvoicer),
		container.Class[*InvoiceCommand](NewInvoiceCommand).
			Tag(commands.Capability).
			Mark(commands.Capability, commands.Spec{Name: "invoice", Description: "Issue an invoice: invoice <customer> <amount>"}),
		container.Class[*Routes](NewRoutes).
			Tag(routing.Capability).
			Mark(routing.Capability, routing.Mount{Prefix: "/billing"}),
	)
	store.DefineModule(Ref, container.ModuleDescriptor{
		Name: Name,
		Providers: []any{
			container.TypeOf[*Invoicer](),
			container.TypeOf[*InvoiceCommand](),
			container.TypeOf[*Routes](),
		},
		Exports: []container.Token{container.TypeOf[*Invoicer]()},
	})
}
