package routing

import (
	"context"
	"fmt"

	"github.com/km-arc/go-ioc/framework/capability"
)

// Capability is the tag carried by route providers.
const Capability = "routes"

// Routes is implemented by providers that contribute HTTP endpoints.
type Routes interface {
	MountRoutes(r *Router)
}

// Mount is the baseline marker of a Routes provider. An empty Prefix mounts
// at the root.
type Mount struct {
	Prefix string
}

// Consumer mounts "routes" bindings onto a Router. Bindings naming the same
// prefix share one sub-router.
type Consumer struct {
	router *Router
}

// NewConsumer returns a capability consumer for router.
func NewConsumer(router *Router) *Consumer { return &Consumer{router: router} }

func (c *Consumer) Capability() string { return Capability }

func (c *Consumer) Consume(_ context.Context, b capability.Binding) error {
	m, ok := b.Marker.(Mount)
	if !ok {
		return fmt.Errorf("marker is %T, want routing.Mount", b.Marker)
	}
	routes, ok := b.Instance.(Routes)
	if !ok {
		return fmt.Errorf("%T does not implement routing.Routes", b.Instance)
	}
	if m.Prefix == "" || m.Prefix == "/" {
		c.router.Group(routes.MountRoutes)
		return nil
	}
	c.router.Prefix(m.Prefix, routes.MountRoutes)
	return nil
}
