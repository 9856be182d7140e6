package container

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ModuleDescriptor declares a module: its providers, the modules it imports
// and the tokens it makes visible to importers.
//
//	store.DefineModule(container.TypeOf[*BillingModule](), container.ModuleDescriptor{
//	    Name:      "billing",
//	    Providers: []any{container.TypeOf[*Invoicer]()},
//	    Exports:   []container.Token{container.TypeOf[*Invoicer]()},
//	})
type ModuleDescriptor struct {
	// Name is case-insensitive and unique per process run.
	Name      string  `validate:"required,max=100,printascii"`
	Providers []any   `validate:"dive,required"`
	Imports   []Token `validate:"dive,required"`
	Exports   []Token `validate:"dive,required"`
	// Global makes unscoped providers global instead of module-scoped.
	Global bool
}

// moduleEntry is what the registrar keeps per module name.
type moduleEntry struct {
	Descriptor ModuleDescriptor
	ClassRef   Token
	Providers  []Descriptor
}

// RegisteredModule is a read-only view of a registered module.
type RegisteredModule struct {
	Name      string
	Global    bool
	ClassRef  Token
	Imports   []Token
	Exports   []Token
	Providers []Descriptor
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func descriptorValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			tok, _ := v.Interface().(Token)
			return tok.String()
		}, Token{})
	})
	return validate
}

// RegisterModule registers desc, its providers, optionally the module class
// itself, and then every imported module, eagerly and transitively.
//
// Re-registering a name replaces the previous entry. In strict mode a second
// registration of the same (name, classRef) is skipped, which keeps diamond
// imports cheap, and a different descriptor under a taken name fails.
func (c *Container) RegisterModule(desc ModuleDescriptor, classRef ...Token) error {
	var ref Token
	if len(classRef) > 0 {
		ref = classRef[0]
	}
	return c.registerModule(desc, ref, map[string]bool{})
}

// registerModule carries the set of modules on the current import chain so
// an import cycle terminates instead of recursing forever.
func (c *Container) registerModule(desc ModuleDescriptor, ref Token, chain map[string]bool) error {
	if err := descriptorValidator().Struct(desc); err != nil {
		return &InvalidModuleError{Module: desc.Name, Err: err}
	}

	key := moduleKey(desc.Name)
	if chain[key] {
		c.log.Warn().Str("module", desc.Name).Msg("import cycle; module already on the import chain")
		return nil
	}
	chain[key] = true
	defer delete(chain, key)

	c.mu.Lock()
	prev, exists := c.registeredModules[key]
	if exists && c.strict {
		c.mu.Unlock()
		if !ref.IsZero() && prev.ClassRef == ref {
			return nil
		}
		return &DuplicateModuleError{Module: desc.Name}
	}
	entry := &moduleEntry{Descriptor: desc, ClassRef: ref}
	c.registeredModules[key] = entry
	if !exists {
		c.moduleOrder = append(c.moduleOrder, key)
	}
	c.mu.Unlock()

	pc := ProviderContext{ModuleName: desc.Name, Global: desc.Global}
	descs, err := c.registerProviders(desc.Providers, pc, desc.Exports)
	if err != nil {
		return err
	}

	if !ref.IsZero() {
		d, err := Normalize(ClassProvider{Token: ref, UseClass: ref, Scope: ScopeModule}, pc, c.store)
		if err != nil {
			return err
		}
		if err := c.Register(d, desc.Exports); err != nil {
			return err
		}
	}

	c.mu.Lock()
	entry.Providers = descs
	c.mu.Unlock()

	c.log.Debug().Str("module", desc.Name).Int("providers", len(descs)).
		Int("imports", len(desc.Imports)).Msg("module registered")

	for _, imp := range desc.Imports {
		impDesc, ok := c.store.ModuleDescriptor(imp)
		if !ok {
			return &MissingModuleDescriptorError{Module: desc.Name, Import: imp}
		}
		if err := c.registerModule(impDesc, imp, chain); err != nil {
			return err
		}
	}
	return nil
}

// RegisterModuleRef looks up the descriptor attached to ref and registers it
// with ref as the module class.
func (c *Container) RegisterModuleRef(ref Token) error {
	desc, ok := c.store.ModuleDescriptor(ref)
	if !ok {
		return &MissingModuleDescriptorError{Import: ref}
	}
	return c.RegisterModule(desc, ref)
}

// Modules returns the registered modules in first-registration order.
func (c *Container) Modules() []RegisteredModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]RegisteredModule, 0, len(c.moduleOrder))
	for _, key := range c.moduleOrder {
		e := c.registeredModules[key]
		out = append(out, RegisteredModule{
			Name:      e.Descriptor.Name,
			Global:    e.Descriptor.Global,
			ClassRef:  e.ClassRef,
			Imports:   append([]Token(nil), e.Descriptor.Imports...),
			Exports:   append([]Token(nil), e.Descriptor.Exports...),
			Providers: append([]Descriptor(nil), e.Providers...),
		})
	}
	return out
}

// Module returns the registered module named name (case-insensitive).
func (c *Container) Module(name string) (RegisteredModule, bool) {
	for _, m := range c.Modules() {
		if moduleKey(m.Name) == moduleKey(name) {
			return m, true
		}
	}
	return RegisteredModule{}, false
}
