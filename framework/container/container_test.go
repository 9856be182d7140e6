package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── Singleton per scope ──────────────────────────────────────────────────────

func TestResolve_SameInstanceWithinScope(t *testing.T) {
	store := container.NewStore().Define(container.Class[*invoicer](newInvoicer))
	c := container.New(store)
	require.NoError(t, c.RegisterProviders([]any{container.TypeOf[*invoicer]()}, container.ProviderContext{}, nil))

	a, err := container.ResolveType[*invoicer](c)
	require.NoError(t, err)
	b, err := container.ResolveType[*invoicer](c)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.True(t, c.Resolved(container.TypeOf[*invoicer]()))
}

func TestResolve_ModuleScopesAreIsolated(t *testing.T) {
	store := container.NewStore().Define(container.Class[*invoicer](newInvoicer))
	c := container.New(store)
	tok := container.TypeOf[*invoicer]()
	require.NoError(t, c.RegisterProviders([]any{tok}, container.ProviderContext{ModuleName: "A"}, nil))
	require.NoError(t, c.RegisterProviders([]any{tok}, container.ProviderContext{ModuleName: "B"}, nil))

	a1 := container.MustResolve[*invoicer](c, tok, "A")
	a2 := container.MustResolve[*invoicer](c, tok, "a")
	b1 := container.MustResolve[*invoicer](c, tok, "B")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)
}

// ── Precedence ───────────────────────────────────────────────────────────────

func TestResolve_Precedence(t *testing.T) {
	c := container.New(nil)
	tok := container.TypeOf[*greeter]()

	require.NoError(t, c.RegisterProviders([]any{
		container.FactoryProvider{Token: tok, UseFactory: func() *greeter { return &greeter{from: "global"} }},
	}, container.ProviderContext{}, nil))
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{
		Name: "A",
		Providers: []any{
			container.FactoryProvider{Token: tok, UseFactory: func() *greeter { return &greeter{from: "A"} }},
		},
		Exports: []container.Token{tok},
	}))

	inA := container.MustResolve[*greeter](c, tok, "A")
	global := container.MustResolve[*greeter](c, tok)
	elsewhere := container.MustResolve[*greeter](c, tok, "B")

	assert.Equal(t, "A", inA.from)
	assert.Equal(t, "global", global.from)
	assert.NotSame(t, inA, global)
	// any other module sees A's export before the global registration
	assert.Same(t, inA, elsewhere)
}

func TestResolve_ModuleLocalShadowsExport(t *testing.T) {
	c := container.New(nil)
	tok := container.Named("greeting")
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{
		Name:      "A",
		Providers: []any{container.ValueProvider{Token: tok, UseValue: "from A"}},
		Exports:   []container.Token{tok},
	}))
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{
		Name:      "B",
		Providers: []any{container.ValueProvider{Token: tok, UseValue: "from B"}},
	}))

	v, err := c.Resolve(tok, "B")
	require.NoError(t, err)
	assert.Equal(t, "from B", v)

	v, err = c.Resolve(tok, "C")
	require.NoError(t, err)
	assert.Equal(t, "from A", v)
}

// ── Auto-registration ────────────────────────────────────────────────────────

func TestResolve_AutoRegistersConstructibleClass(t *testing.T) {
	c := container.New(nil)
	tok := container.TypeOf[*counter]()
	assert.False(t, c.Bound(tok))

	first, err := container.ResolveType[*counter](c)
	require.NoError(t, err)
	first.n = 42

	second, err := container.ResolveType[*counter](c)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 42, second.n)
	assert.True(t, c.Bound(tok))
}

func TestResolve_AutoRegistersInModuleContext(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{Name: "A"}))

	a := container.MustResolve[*counter](c, container.TypeOf[*counter](), "A")
	b := container.MustResolve[*counter](c, container.TypeOf[*counter](), "B")
	assert.NotSame(t, a, b)
	assert.False(t, c.Bound(container.TypeOf[*counter]()))
}

// ── Failures ─────────────────────────────────────────────────────────────────

func TestResolve_MissingDependencyFailsWithoutCaching(t *testing.T) {
	store := container.NewStore().Define(
		container.Class[*reporter](newReporter).InjectAt(0, container.Named("reporter.name")),
	)
	c := container.New(store)
	tok := container.TypeOf[*reporter]()
	require.NoError(t, c.RegisterProviders([]any{tok}, container.ProviderContext{}, nil))

	_, err := c.Resolve(tok)
	var missing *container.MissingProviderError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, container.Named("reporter.name"), missing.Token)
	assert.ErrorIs(t, err, container.ErrMissingProvider)
	assert.False(t, c.Resolved(tok))

	// once the dependencies exist the same descriptor builds fine
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("reporter.name"), UseValue: "daily"},
		container.ClassProvider{Token: container.TypeOf[repository](), UseClass: container.TypeOf[*memRepo]()},
	}, container.ProviderContext{}, nil))

	r, err := container.Resolve[*reporter](c, tok)
	require.NoError(t, err)
	assert.Equal(t, "daily", r.name)
	assert.IsType(t, &memRepo{}, r.repo)
}

func TestResolve_InterfaceWithoutProvider(t *testing.T) {
	c := container.New(nil)
	_, err := c.Resolve(container.TypeOf[repository](), "orders")

	var missing *container.MissingProviderError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "orders", missing.Module)
	assert.Contains(t, err.Error(), `in module "orders"`)
}

func TestResolve_ConstructionErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := container.New(nil)
	tok := container.Named("conn")
	require.NoError(t, c.RegisterProviders([]any{
		container.FactoryProvider{Token: tok, UseFactory: func() (*counter, error) { return nil, boom }},
	}, container.ProviderContext{}, nil))

	_, err := c.Resolve(tok)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, container.ErrConstruction)
	assert.False(t, c.Resolved(tok))
}

func TestResolve_DependencyTypeMismatch(t *testing.T) {
	store := container.NewStore().Define(
		container.Class[*counter](func(n int) *counter { return &counter{n: n} }).InjectAt(0, container.Named("n")),
	)
	c := container.New(store)
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("n"), UseValue: "seven"},
	}, container.ProviderContext{}, nil))

	_, err := c.Resolve(container.TypeOf[*counter]())
	var ce *container.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "not assignable to int")
}

func TestResolve_NilValueBecomesZeroArgument(t *testing.T) {
	store := container.NewStore().Define(container.Class[*reporter](newReporter).InjectAt(0, container.Named("name")))
	c := container.New(store)
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("name"), UseValue: "nightly"},
		container.ValueProvider{Token: container.TypeOf[repository](), UseValue: nil},
	}, container.ProviderContext{}, nil))

	r := container.MustResolve[*reporter](c, container.TypeOf[*reporter]())
	assert.Equal(t, "nightly", r.name)
	assert.Nil(t, r.repo)
}

func TestResolve_TypedHelperMismatch(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("n"), UseValue: 1},
	}, container.ProviderContext{}, nil))

	_, err := container.Resolve[string](c, container.Named("n"))
	assert.ErrorContains(t, err, "resolved to int")
	assert.Panics(t, func() { container.MustResolve[string](c, container.Named("n")) })
}

// ── Cycles ───────────────────────────────────────────────────────────────────

func TestResolve_DetectsCycles(t *testing.T) {
	store := container.NewStore().Define(
		container.Class[*cycA](func(b *cycB) *cycA { return &cycA{b: b} }),
		container.Class[*cycB](func(a *cycA) *cycB { return &cycB{a: a} }),
	)
	c := container.New(store)

	_, err := c.Resolve(container.TypeOf[*cycA]())
	var cyc *container.CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []container.Token{
		container.TypeOf[*cycA](),
		container.TypeOf[*cycB](),
		container.TypeOf[*cycA](),
	}, cyc.Path)
	assert.ErrorIs(t, err, container.ErrCyclicDependency)
	assert.False(t, c.Resolved(container.TypeOf[*cycA]()))
}

// ── Registration modes ───────────────────────────────────────────────────────

func TestRegister_LastWriteWins(t *testing.T) {
	c := container.New(nil)
	tok := container.Named("dsn")
	for _, v := range []string{"first", "second"} {
		require.NoError(t, c.RegisterProviders([]any{container.ValueProvider{Token: tok, UseValue: v}}, container.ProviderContext{}, nil))
	}
	v, err := c.Resolve(tok)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestRegister_KeepsCachedInstance(t *testing.T) {
	c := container.New(nil)
	tok := container.Named("greeter")
	reg := func(from string) {
		require.NoError(t, c.RegisterProviders([]any{
			container.FactoryProvider{Token: tok, UseFactory: func() *greeter { return &greeter{from: from} }},
		}, container.ProviderContext{}, nil))
	}

	reg("old")
	first := container.MustResolve[*greeter](c, tok)
	assert.Equal(t, "old", first.from)
	reg("new")
	assert.Same(t, first, container.MustResolve[*greeter](c, tok))
}

func TestRegister_RepeatedModuleRegistrationBuildsOnce(t *testing.T) {
	built := 0
	store := container.NewStore().Define(
		container.Class[*counter](func() *counter { built++; return &counter{n: built} }),
	)
	c := container.New(store)
	desc := container.ModuleDescriptor{
		Name:      "Billing",
		Providers: []any{container.TypeOf[*counter]()},
		Exports:   []container.Token{container.TypeOf[*counter]()},
	}
	require.NoError(t, c.RegisterModule(desc, billingRef))

	first := container.MustResolve[*counter](c, container.TypeOf[*counter](), "Billing")
	require.NoError(t, c.RegisterModule(desc, billingRef))
	again := container.MustResolve[*counter](c, container.TypeOf[*counter](), "Billing")
	viaExport := container.MustResolve[*counter](c, container.TypeOf[*counter](), "Orders")

	assert.Equal(t, 1, built)
	assert.Same(t, first, again)
	assert.Same(t, first, viaExport)
}

func TestRegister_StrictRejectsDuplicates(t *testing.T) {
	c := container.New(nil, container.WithStrict(true))
	tok := container.Named("dsn")
	require.NoError(t, c.RegisterProviders([]any{container.ValueProvider{Token: tok, UseValue: "a"}}, container.ProviderContext{}, nil))

	err := c.RegisterProviders([]any{container.ValueProvider{Token: tok, UseValue: "b"}}, container.ProviderContext{}, nil)
	var dup *container.DuplicateProviderError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, tok, dup.Token)

	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: tok, UseValue: "c", Override: true},
	}, container.ProviderContext{}, nil))
	v, _ := c.Resolve(tok)
	assert.Equal(t, "c", v)

	// the same token in another scope is not a duplicate
	require.NoError(t, c.RegisterProviders([]any{container.ValueProvider{Token: tok, UseValue: "m"}},
		container.ProviderContext{ModuleName: "Billing"}, nil))
}

// ── Factories and class overrides ────────────────────────────────────────────

func TestFactory_InjectsByParameterType(t *testing.T) {
	c := container.New(container.NewStore().Define(container.Class[*invoicer](newInvoicer)))
	tok := container.TypeOf[*orderService]()
	require.NoError(t, c.RegisterProviders([]any{
		container.FactoryProvider{Token: tok, UseFactory: newOrderService},
	}, container.ProviderContext{}, nil))

	svc := container.MustResolve[*orderService](c, tok)
	assert.Same(t, container.MustResolve[*invoicer](c, container.TypeOf[*invoicer]()), svc.inv)
}

func TestFactory_ExplicitInjectTokens(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("prefix"), UseValue: "pg"},
		&container.FactoryProvider{
			Token:      container.TypeOf[repository](),
			UseFactory: func(prefix string) repository { return &memRepo{prefix: prefix} },
			Inject:     []container.Token{container.Named("prefix")},
		},
	}, container.ProviderContext{}, nil))

	repo := container.MustResolve[repository](c, container.TypeOf[repository]())
	assert.Equal(t, "pg", repo.Find(1))
}

func TestClassProvider_BindsInterfaceToImplementation(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterProviders([]any{
		container.ClassProvider{Token: container.TypeOf[repository](), UseClass: container.TypeOf[*memRepo]()},
	}, container.ProviderContext{}, nil))

	a := container.MustResolve[repository](c, container.TypeOf[repository]())
	b := container.MustResolve[repository](c, container.TypeOf[repository]())
	assert.Same(t, a, b)
}

// ── Module-local overrides ───────────────────────────────────────────────────

func TestWhen_ShadowsForOneModule(t *testing.T) {
	c := container.New(nil)
	tok := container.Named("greeting")
	require.NoError(t, c.RegisterProviders([]any{container.ValueProvider{Token: tok, UseValue: "hello"}}, container.ProviderContext{}, nil))

	require.NoError(t, c.When("Orders").Needs(tok).GiveValue("hola"))
	require.NoError(t, c.When("Billing").Needs(tok).Give(func() string { return "bonjour" }))

	assert.Equal(t, "hola", container.MustResolve[string](c, tok, "orders"))
	assert.Equal(t, "bonjour", container.MustResolve[string](c, tok, "Billing"))
	assert.Equal(t, "hello", container.MustResolve[string](c, tok))
}

func TestWhen_GiveClass(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.When("Orders").Needs(container.TypeOf[repository]()).GiveClass(container.TypeOf[*memRepo]()))

	repo, err := container.Resolve[repository](c, container.TypeOf[repository](), "Orders")
	require.NoError(t, err)
	assert.IsType(t, &memRepo{}, repo)

	_, err = c.Resolve(container.TypeOf[repository]())
	assert.ErrorIs(t, err, container.ErrMissingProvider)
}

// ── Callbacks and introspection ──────────────────────────────────────────────

func TestAfterResolving_FiresOncePerConstruction(t *testing.T) {
	c := container.New(nil)
	var seen []container.Token
	c.AfterResolving(func(tok container.Token, module string, instance any) {
		seen = append(seen, tok)
	})

	container.MustResolve[*counter](c, container.TypeOf[*counter]())
	container.MustResolve[*counter](c, container.TypeOf[*counter]())

	assert.Equal(t, []container.Token{container.TypeOf[*counter]()}, seen)
}

func TestDescriptors(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("g"), UseValue: 1},
	}, container.ProviderContext{}, nil))
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.Named("m"), UseValue: 2},
	}, container.ProviderContext{ModuleName: "Billing"}, nil))

	global := c.Descriptors("")
	require.Len(t, global, 1)
	assert.Equal(t, container.Named("g"), global[0].Token)

	mod := c.Descriptors("billing")
	require.Len(t, mod, 1)
	assert.Equal(t, container.ScopeModule, mod[0].Scope)
	assert.Equal(t, "Billing", mod[0].ModuleName)
}

// ── Alias ────────────────────────────────────────────────────────────────────

func TestAlias_ResolvesThroughTarget(t *testing.T) {
	store := container.NewStore().Define(container.Class[*invoicer](newInvoicer))
	c := container.New(store)
	tok := container.TypeOf[*invoicer]()
	require.NoError(t, c.RegisterProviders([]any{tok}, container.ProviderContext{}, nil))
	require.NoError(t, c.Alias(container.Named("invoicer"), tok))
	require.NoError(t, c.Alias(container.Named("billing.invoicer"), container.Named("invoicer")))

	assert.True(t, c.Bound(container.Named("billing.invoicer")))
	byType := container.MustResolve[*invoicer](c, tok)
	assert.Same(t, byType, container.MustResolve[*invoicer](c, container.Named("invoicer")))
	assert.Same(t, byType, container.MustResolve[*invoicer](c, container.Named("billing.invoicer")))
	assert.True(t, c.Resolved(container.Named("invoicer")))
}

func TestAlias_FollowsModulePrecedence(t *testing.T) {
	c := container.New(nil)
	tok := container.TypeOf[repository]()
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: tok, UseValue: &memRepo{prefix: "global"}},
	}, container.ProviderContext{}, nil))
	require.NoError(t, c.When("Orders").Needs(tok).GiveValue(&memRepo{prefix: "orders"}))
	require.NoError(t, c.Alias(container.Named("repo"), tok))

	assert.Equal(t, "global", container.MustResolve[repository](c, container.Named("repo")).Find(1))
	assert.Equal(t, "orders", container.MustResolve[repository](c, container.Named("repo"), "Orders").Find(1))
}

func TestAlias_RejectsCycles(t *testing.T) {
	c := container.New(nil)
	a, b := container.Named("a"), container.Named("b")

	err := c.Alias(a, a)
	assert.ErrorIs(t, err, container.ErrAliasCycle)

	require.NoError(t, c.Alias(a, b))
	err = c.Alias(b, a)
	var cyc *container.AliasCycleError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, b, cyc.Alias)
}

// ── Extend ───────────────────────────────────────────────────────────────────

func TestExtend_DecoratesBeforeCaching(t *testing.T) {
	c := container.New(nil)
	tok := container.TypeOf[*greeter]()
	require.NoError(t, c.RegisterProviders([]any{
		container.FactoryProvider{Token: tok, UseFactory: func() *greeter { return &greeter{from: "base"} }},
	}, container.ProviderContext{}, nil))
	require.NoError(t, c.Alias(container.Named("greeter"), tok))

	calls := 0
	require.NoError(t, c.Extend(container.Named("greeter"), func(inst any, _ *container.Container) (any, error) {
		calls++
		g := inst.(*greeter)
		return &greeter{from: g.from + "+traced"}, nil
	}))

	first := container.MustResolve[*greeter](c, tok)
	assert.Equal(t, "base+traced", first.from)
	assert.Same(t, first, container.MustResolve[*greeter](c, tok))
	assert.Equal(t, 1, calls)
}

func TestExtend_DecoratesCachedInstances(t *testing.T) {
	c := container.New(nil)
	tok := container.TypeOf[*counter]()
	require.NoError(t, c.RegisterProviders([]any{tok}, container.ProviderContext{ModuleName: "Billing"}, nil))
	container.MustResolve[*counter](c, tok, "Billing")

	require.NoError(t, c.Extend(tok, func(inst any, _ *container.Container) (any, error) {
		return &counter{n: inst.(*counter).n + 10}, nil
	}))
	assert.Equal(t, 10, container.MustResolve[*counter](c, tok, "Billing").n)
}

func TestExtend_ErrorIsConstructionError(t *testing.T) {
	c := container.New(nil)
	boom := errors.New("boom")
	require.NoError(t, c.Extend(container.TypeOf[*counter](), func(any, *container.Container) (any, error) {
		return nil, boom
	}))

	_, err := c.Resolve(container.TypeOf[*counter]())
	assert.ErrorIs(t, err, container.ErrConstruction)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Resolved(container.TypeOf[*counter]()))
}

// ── Tagged ───────────────────────────────────────────────────────────────────

func TestTagged_ModuleOrderWithoutResolving(t *testing.T) {
	c := container.New(nil)
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{
		Name: "Console",
		Providers: []any{
			container.ValueProvider{Token: container.Named("ping"), UseValue: 1, Capability: "command"},
			container.ValueProvider{Token: container.Named("plain"), UseValue: 2},
		},
	}))
	require.NoError(t, c.RegisterModule(container.ModuleDescriptor{
		Name: "Billing",
		Providers: []any{
			container.ValueProvider{Token: container.Named("invoice"), UseValue: 3, Capability: "command"},
			container.ValueProvider{Token: container.Named("on.issued"), UseValue: 4, Capability: "event"},
		},
	}))

	cmds := c.Tagged("command")
	require.Len(t, cmds, 2)
	assert.Equal(t, container.Named("ping"), cmds[0].Token)
	assert.Equal(t, "Console", cmds[0].ModuleName)
	assert.Equal(t, container.Named("invoice"), cmds[1].Token)

	assert.Len(t, c.Tagged(""), 3)
	assert.Empty(t, c.Tagged("routes"))
}
