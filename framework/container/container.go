package container

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration and construction events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Container) { c.log = l.With().Str("component", "container").Logger() }
}

// WithStrict rejects duplicate registrations in the same scope unless the
// provider sets Override, and duplicate module names with a different
// descriptor. The default is last-write-wins.
func WithStrict(strict bool) Option {
	return func(c *Container) { c.strict = strict }
}

// WithCycleDetection toggles the per-call resolution path check. With it
// off, a cyclic graph recurses until the stack is exhausted.
func WithCycleDetection(on bool) Option {
	return func(c *Container) { c.detectCycles = on }
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container owns provider descriptors and instance caches.
//
// Lookups follow module-local > exported > global precedence so a module can
// shadow a global implementation for its own wiring. Instances are built
// lazily on first Resolve and cached once per (token, scope owner).
//
// Registration is expected to happen in a single startup phase. The mutex
// guards map access only and is never held while user constructors run, so
// Resolve is re-entrant.
type Container struct {
	mu sync.RWMutex

	store        *Store
	log          zerolog.Logger
	strict       bool
	detectCycles bool

	// token → descriptor, scope global
	globalProviders map[Token]*Descriptor
	// lower(module) → token → descriptor, scope module
	moduleProviders map[string]map[Token]*Descriptor
	// token → descriptor, flattened across modules, last write wins
	exportedProviders map[Token]*Descriptor

	globalInstances map[Token]any
	moduleInstances map[string]map[Token]any

	// lower(name) → registered module, plus registration order
	registeredModules map[string]*moduleEntry
	moduleOrder       []string

	// alias → target, chains allowed, cycles rejected by Alias
	aliases   map[Token]Token
	extenders map[Token][]Extender

	afterResolving []func(tok Token, module string, instance any)
}

// Extender decorates an instance after construction and before it is
// cached. The returned value replaces the instance.
type Extender func(instance any, c *Container) (any, error)

// New creates an empty container backed by store. A nil store gets a fresh
// one.
func New(store *Store, opts ...Option) *Container {
	if store == nil {
		store = NewStore()
	}
	c := &Container{
		store:             store,
		log:               zerolog.Nop(),
		detectCycles:      true,
		globalProviders:   make(map[Token]*Descriptor),
		moduleProviders:   make(map[string]map[Token]*Descriptor),
		exportedProviders: make(map[Token]*Descriptor),
		globalInstances:   make(map[Token]any),
		moduleInstances:   make(map[string]map[Token]any),
		registeredModules: make(map[string]*moduleEntry),
		aliases:           make(map[Token]Token),
		extenders:         make(map[Token][]Extender),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Store returns the metadata store the container reads class and module
// definitions from.
func (c *Container) Store() *Store { return c.store }

// ── Registration ──────────────────────────────────────────────────────────────

// Register inserts desc into the global map or its module's map, and into
// the exported map when desc.Token is listed in exports. A repeat
// registration overwrites the previous descriptor. An instance already
// cached for the token is kept, so a token is built at most once per scope
// owner even when a diamond import registers it twice.
func (c *Container) Register(desc Descriptor, exports []Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register(desc, exports)
}

// register is the internal registration helper (must hold mu.Lock).
func (c *Container) register(desc Descriptor, exports []Token) error {
	d := desc
	var target map[Token]*Descriptor

	if d.Scope == ScopeGlobal {
		target = c.globalProviders
	} else {
		key := moduleKey(d.ModuleName)
		if c.moduleProviders[key] == nil {
			c.moduleProviders[key] = make(map[Token]*Descriptor)
		}
		target = c.moduleProviders[key]
	}

	if _, dup := target[d.Token]; dup {
		if c.strict && !d.Override {
			return &DuplicateProviderError{Token: d.Token, Module: ownerName(&d)}
		}
		c.log.Debug().Str("token", d.Token.String()).Str("module", d.ModuleName).
			Msg("provider re-registered; previous descriptor replaced")
	}

	target[d.Token] = &d
	if containsToken(exports, d.Token) {
		c.exportedProviders[d.Token] = &d
	}

	c.log.Debug().
		Str("token", d.Token.String()).
		Str("module", d.ModuleName).
		Str("scope", d.Scope.String()).
		Str("kind", d.Kind.String()).
		Msg("provider registered")
	return nil
}

// RegisterProviders normalizes and registers each entry of list under pc.
// It stops at the first invalid entry.
func (c *Container) RegisterProviders(list []any, pc ProviderContext, exports []Token) error {
	_, err := c.registerProviders(list, pc, exports)
	return err
}

func (c *Container) registerProviders(list []any, pc ProviderContext, exports []Token) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(list))
	for _, entry := range list {
		d, err := Normalize(entry, pc, c.store)
		if err != nil {
			return nil, err
		}
		if err := c.Register(d, exports); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// frame is one step of a resolution path.
type frame struct {
	desc *Descriptor
	tok  Token
}

// Resolve returns the instance for tok, building it and its dependencies
// on first use. The optional module names the resolution context.
//
//	svc, err := c.Resolve(container.TypeOf[*billing.Service](), "orders")
func (c *Container) Resolve(tok Token, module ...string) (any, error) {
	return c.resolve(tok, firstOr(module, ""), nil)
}

func (c *Container) resolve(tok Token, module string, path []frame) (any, error) {
	d, err := c.lookup(tok, module)
	if err != nil {
		return nil, err
	}

	if d.Kind == KindValue {
		return d.UseValue, nil
	}

	owner := scopeOwner(d)
	if inst, ok := c.cached(d.Token, d.Scope, owner); ok {
		return inst, nil
	}

	if c.detectCycles {
		for i, f := range path {
			if f.desc == d {
				cycle := make([]Token, 0, len(path)-i+1)
				for _, g := range path[i:] {
					cycle = append(cycle, g.tok)
				}
				return nil, &CyclicDependencyError{Path: append(cycle, tok)}
			}
		}
	}
	path = append(path, frame{desc: d, tok: tok})

	// module-scoped providers wire against their owner so an exported
	// instance is the same no matter which importer builds it first
	depModule := module
	if d.Scope == ScopeModule {
		depModule = d.ModuleName
	}

	var inst any
	switch d.Kind {
	case KindFactory:
		args, err := c.resolveArgs(d, d.Inject, d.UseFactory.Type(), depModule, path)
		if err != nil {
			return nil, err
		}
		inst, err = call(d.UseFactory, args, d.factoryErr)
		if err != nil {
			return nil, &ConstructionError{Token: tok, Module: module, Err: err}
		}

	case KindClass:
		def, ok := c.store.classFor(d.UseClass.typ)
		if !ok {
			return nil, &MissingProviderError{Token: d.UseClass, Module: module}
		}
		var args []reflect.Value
		if def.ctor.IsValid() {
			args, err = c.resolveArgs(d, def.inject, def.ctor.Type(), depModule, path)
			if err != nil {
				return nil, err
			}
		}
		inst, err = def.construct(args)
		if err != nil {
			return nil, &ConstructionError{Token: tok, Module: module, Err: err}
		}

	default:
		return nil, &InvalidProviderShapeError{Module: d.ModuleName, Entry: *d, Reason: "descriptor has no kind"}
	}

	if inst, err = c.extend(d.Token, inst); err != nil {
		return nil, &ConstructionError{Token: tok, Module: module, Err: err}
	}

	inst = c.keep(d, owner, inst)
	c.log.Debug().
		Str("token", tok.String()).
		Str("module", module).
		Str("scope", d.Scope.String()).
		Msg("instance created")
	c.fireAfterResolving(tok, module, inst)
	return inst, nil
}

// lookup finds the effective descriptor for tok in module, registering an
// ad-hoc class descriptor for constructible tokens nobody declared.
func (c *Container) lookup(tok Token, module string) (*Descriptor, error) {
	c.mu.RLock()
	tok = c.canonical(tok)
	d := c.find(tok, module)
	var global bool
	if e, ok := c.registeredModules[moduleKey(module)]; ok {
		global = e.Descriptor.Global
	}
	c.mu.RUnlock()
	if d != nil {
		return d, nil
	}

	if !c.store.Constructible(tok) {
		return nil, &MissingProviderError{Token: tok, Module: module}
	}

	desc, err := Normalize(tok, ProviderContext{ModuleName: module, Global: global}, c.store)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.find(tok, module); d != nil {
		return d, nil
	}
	if err := c.register(desc, nil); err != nil {
		return nil, err
	}
	c.log.Debug().Str("token", tok.String()).Str("module", module).Msg("class auto-registered")
	return c.find(tok, module), nil
}

// find applies module-local > exported > global precedence (must hold mu).
// Without a module context there is nothing to import into, so a global
// registration wins over an export. Aliases are followed first.
func (c *Container) find(tok Token, module string) *Descriptor {
	tok = c.canonical(tok)
	if module == "" {
		if d, ok := c.globalProviders[tok]; ok {
			return d
		}
		return c.exportedProviders[tok]
	}
	if d, ok := c.moduleProviders[moduleKey(module)][tok]; ok {
		return d
	}
	if d, ok := c.exportedProviders[tok]; ok {
		return d
	}
	if d, ok := c.globalProviders[tok]; ok {
		return d
	}
	return nil
}

func (c *Container) resolveArgs(owner *Descriptor, deps []Token, ft reflect.Type, module string, path []frame) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(deps))
	for i, dep := range deps {
		inst, err := c.resolve(dep, module, path)
		if err != nil {
			return nil, err
		}
		pt := ft.In(i)
		if inst == nil {
			args[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(inst)
		if !v.Type().AssignableTo(pt) {
			return nil, &ConstructionError{
				Token:  owner.Token,
				Module: module,
				Err:    fmt.Errorf("argument %d: [%s] resolved to %s, not assignable to %s", i, dep, v.Type(), pt),
			}
		}
		args[i] = v
	}
	return args, nil
}

func (c *Container) cached(tok Token, scope Scope, owner string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if scope == ScopeGlobal {
		inst, ok := c.globalInstances[tok]
		return inst, ok
	}
	inst, ok := c.moduleInstances[owner][tok]
	return inst, ok
}

// keep caches inst for d. If another caller cached one first, that one
// wins and is returned so identity holds.
func (c *Container) keep(d *Descriptor, owner string, inst any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.Scope == ScopeGlobal {
		if prev, ok := c.globalInstances[d.Token]; ok {
			return prev
		}
		c.globalInstances[d.Token] = inst
		return inst
	}
	if c.moduleInstances[owner] == nil {
		c.moduleInstances[owner] = make(map[Token]any)
	}
	if prev, ok := c.moduleInstances[owner][d.Token]; ok {
		return prev
	}
	c.moduleInstances[owner][d.Token] = inst
	return inst
}

// ── Alias ─────────────────────────────────────────────────────────────────────

// Alias registers alias as another name for target. Resolving alias yields
// the instance target resolves to in the same module context.
//
//	c.Alias(container.Named("log"), container.TypeOf[zerolog.Logger]())
func (c *Container) Alias(alias, target Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canonical(target) == alias {
		return &AliasCycleError{Alias: alias, Target: target}
	}
	c.aliases[alias] = target
	c.log.Debug().Str("alias", alias.String()).Str("target", target.String()).Msg("alias registered")
	return nil
}

// canonical follows alias chains to the token a descriptor is registered
// under (must hold mu).
func (c *Container) canonical(tok Token) Token {
	for i, n := 0, len(c.aliases)+1; i < n; i++ {
		target, ok := c.aliases[tok]
		if !ok {
			return tok
		}
		tok = target
	}
	return tok
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates every instance built for tok. Extenders run in
// registration order after construction and before caching. Instances
// already cached are decorated in place. Value providers are returned as
// registered and never extended.
//
//	c.Extend(container.TypeOf[Repository](), func(inst any, _ *container.Container) (any, error) {
//	    return &tracingRepo{next: inst.(Repository)}, nil
//	})
func (c *Container) Extend(tok Token, fn Extender) error {
	c.mu.Lock()
	tok = c.canonical(tok)
	c.extenders[tok] = append(c.extenders[tok], fn)

	type hit struct {
		owner string
		inst  any
	}
	var hits []hit
	if inst, ok := c.globalInstances[tok]; ok {
		hits = append(hits, hit{"", inst})
	}
	for owner, cache := range c.moduleInstances {
		if inst, ok := cache[tok]; ok {
			hits = append(hits, hit{owner, inst})
		}
	}
	c.mu.Unlock()

	for _, h := range hits {
		inst, err := fn(h.inst, c)
		if err != nil {
			return &ConstructionError{Token: tok, Module: h.owner, Err: err}
		}
		c.mu.Lock()
		if h.owner == "" {
			c.globalInstances[tok] = inst
		} else {
			c.moduleInstances[h.owner][tok] = inst
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Container) extend(tok Token, inst any) (any, error) {
	c.mu.RLock()
	exts := c.extenders[tok]
	c.mu.RUnlock()
	var err error
	for _, ext := range exts {
		if inst, err = ext(inst, c); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tagged returns the module providers tagged with capability, in module
// registration order. An empty capability matches every tagged provider.
// Nothing is resolved.
func (c *Container) Tagged(capability string) []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Descriptor
	for _, key := range c.moduleOrder {
		for _, d := range c.registeredModules[key].Providers {
			if d.Capability == "" {
				continue
			}
			if capability == "" || d.Capability == capability {
				out = append(out, d)
			}
		}
	}
	return out
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether a descriptor is visible for tok in the given module
// context. It does not auto-register.
func (c *Container) Bound(tok Token, module ...string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.find(tok, firstOr(module, "")) != nil
}

// Resolved reports whether tok has a cached instance (or is a value) in the
// given module context.
func (c *Container) Resolved(tok Token, module ...string) bool {
	c.mu.RLock()
	d := c.find(tok, firstOr(module, ""))
	c.mu.RUnlock()
	if d == nil {
		return false
	}
	if d.Kind == KindValue {
		return true
	}
	_, ok := c.cached(d.Token, d.Scope, scopeOwner(d))
	return ok
}

// Descriptors returns the descriptors registered for module, or the global
// ones when module is "". Order is unspecified.
func (c *Container) Descriptors(module string) []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.globalProviders
	if module != "" {
		src = c.moduleProviders[moduleKey(module)]
	}
	out := make([]Descriptor, 0, len(src))
	for _, d := range src {
		out = append(out, *d)
	}
	return out
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after an instance is built.
// It is not fired for cache hits or value providers.
func (c *Container) AfterResolving(cb func(tok Token, module string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(tok Token, module string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(tok, module, instance)
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves tok and type-asserts the result to T.
//
//	svc, err := container.Resolve[*billing.Service](c, container.TypeOf[*billing.Service](), "orders")
func Resolve[T any](c *Container, tok Token, module ...string) (T, error) {
	var zero T
	inst, err := c.Resolve(tok, module...)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%s]: [%s] resolved to %T", TypeKey(reflect.TypeOf((*T)(nil)).Elem()), tok, inst)
	}
	return typed, nil
}

// ResolveType resolves the class token of T.
func ResolveType[T any](c *Container, module ...string) (T, error) {
	return Resolve[T](c, TypeOf[T](), module...)
}

// MustResolve is like Resolve but panics on error. Meant for entry points
// and tests where a failed resolve should abort.
func MustResolve[T any](c *Container, tok Token, module ...string) T {
	v, err := Resolve[T](c, tok, module...)
	if err != nil {
		panic(err)
	}
	return v
}

// scopeOwner is the module a descriptor's instance is cached under, "" for
// global descriptors.
func scopeOwner(d *Descriptor) string {
	if d.Scope == ScopeGlobal {
		return ""
	}
	return moduleKey(d.ModuleName)
}

func ownerName(d *Descriptor) string {
	if d.Scope == ScopeGlobal {
		return ""
	}
	return d.ModuleName
}

func moduleKey(name string) string { return strings.ToLower(name) }

func firstOr(ss []string, fallback string) string {
	if len(ss) > 0 {
		return ss[0]
	}
	return fallback
}
