package container_test

import (
	"sync/atomic"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type repository interface {
	Find(id int) string
}

type memRepo struct{ prefix string }

func (r *memRepo) Find(id int) string { return r.prefix }

type invoicer struct {
	id int64
}

var invoicerSeq atomic.Int64

func newInvoicer() *invoicer { return &invoicer{id: invoicerSeq.Add(1)} }

type orderService struct {
	inv *invoicer
}

func newOrderService(inv *invoicer) *orderService { return &orderService{inv: inv} }

type greeter struct {
	from string
}

type counter struct {
	n int
}

type reporter struct {
	name string
	repo repository
}

func newReporter(name string, repo repository) *reporter {
	return &reporter{name: name, repo: repo}
}

type cycA struct{ b *cycB }
type cycB struct{ a *cycA }

type billingModule struct{ booted bool }
type ordersModule struct{}

var (
	billingRef = container.TypeOf[*billingModule]()
	ordersRef  = container.TypeOf[*ordersModule]()
)

// billingStore defines Billing (exports *invoicer) and Orders (imports
// Billing, provides *orderService).
func billingStore() *container.Store {
	store := container.NewStore()
	store.Define(
		container.Class[*invoicer](newInvoicer),
		container.Class[*orderService](newOrderService),
	)
	store.DefineModule(billingRef, container.ModuleDescriptor{
		Name:      "Billing",
		Providers: []any{container.TypeOf[*invoicer]()},
		Exports:   []container.Token{container.TypeOf[*invoicer]()},
	})
	store.DefineModule(ordersRef, container.ModuleDescriptor{
		Name:      "Orders",
		Providers: []any{container.TypeOf[*orderService]()},
		Imports:   []container.Token{billingRef},
	})
	return store
}
