package container

// ContextualBuilder registers module-local providers that shadow exported
// and global ones for a single module's wiring.
//
//	c.When("orders").Needs(container.TypeOf[Clock]()).GiveValue(fixedClock)
//	c.When("orders").Needs(container.Named("db")).Give(func(cfg *config.Config) *sql.DB { ... })
type ContextualBuilder struct {
	container *Container
	module    string
	needs     Token
}

// When starts a module-local binding chain for module.
func (c *Container) When(module string) *ContextualBuilder {
	return &ContextualBuilder{container: c, module: module}
}

// Needs names the token being shadowed.
func (b *ContextualBuilder) Needs(tok Token) *ContextualBuilder {
	b.needs = tok
	return b
}

// Give binds the token to a factory inside the module. inject follows the
// FactoryProvider rules: nil means the factory's parameter types.
func (b *ContextualBuilder) Give(factory any, inject ...Token) error {
	p := FactoryProvider{Token: b.needs, UseFactory: factory, Scope: ScopeModule, Override: true}
	if len(inject) > 0 {
		p.Inject = inject
	}
	return b.give(p)
}

// GiveValue binds the token to a fixed value inside the module.
func (b *ContextualBuilder) GiveValue(value any) error {
	return b.give(ValueProvider{Token: b.needs, UseValue: value, Scope: ScopeModule, Override: true})
}

// GiveClass binds the token to a class inside the module.
func (b *ContextualBuilder) GiveClass(class Token) error {
	return b.give(ClassProvider{Token: b.needs, UseClass: class, Scope: ScopeModule, Override: true})
}

func (b *ContextualBuilder) give(p any) error {
	d, err := Normalize(p, ProviderContext{ModuleName: b.module}, b.container.store)
	if err != nil {
		return err
	}
	return b.container.Register(d, nil)
}
