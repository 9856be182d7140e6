// Package commands keeps a registry of named chat-style commands and
// consumes providers tagged with the "command" capability.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/km-arc/go-ioc/framework/capability"
)

// Capability is the tag carried by command providers.
const Capability = "command"

// ErrUnknownCommand is returned by Dispatch for an unregistered name.
var ErrUnknownCommand = errors.New("commands: unknown command")

// Command is implemented by command providers.
type Command interface {
	Execute(ctx context.Context, args []string) (string, error)
}

// Spec is the baseline marker of a command provider.
type Spec struct {
	Name        string
	Description string
}

// Entry is a registered command.
type Entry struct {
	Spec    Spec
	Module  string
	Handler Command
}

// Registry maps command names (case-insensitive) to handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a command. Names must be unique.
func (r *Registry) Register(module string, spec Spec, h Command) error {
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	if name == "" {
		return errors.New("commands: empty command name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[name]; ok {
		return fmt.Errorf("commands: %q already registered by module %q", name, prev.Module)
	}
	r.entries[name] = Entry{Spec: spec, Module: module, Handler: h}
	return nil
}

// Dispatch runs the named command.
func (r *Registry) Dispatch(ctx context.Context, name string, args []string) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return e.Handler.Execute(ctx, args)
}

// List returns registered commands sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.Name < out[j].Spec.Name })
	return out
}

// Consumer feeds "command" bindings into a Registry.
type Consumer struct {
	reg *Registry
}

// NewConsumer returns a capability consumer for reg.
func NewConsumer(reg *Registry) *Consumer { return &Consumer{reg: reg} }

func (c *Consumer) Capability() string { return Capability }

func (c *Consumer) Consume(_ context.Context, b capability.Binding) error {
	spec, ok := b.Marker.(Spec)
	if !ok {
		return fmt.Errorf("marker is %T, want commands.Spec", b.Marker)
	}
	h, ok := b.Instance.(Command)
	if !ok {
		return fmt.Errorf("%T does not implement commands.Command", b.Instance)
	}
	return c.reg.Register(b.Module, spec, h)
}
