// Package container provides a module-aware IoC (Inversion of Control)
// container for Go.
//
// # Overview
//
// Feature bundles ("modules") declare the providers they contribute, the
// modules they import and the tokens they export. The container resolves
// the object graph lazily, building each instance once per scope.
//
// Go has no runtime constructor metadata, so classes are declared once with
// a builder. Their dependency list defaults to the constructor's parameter
// types and can be overridden per parameter.
//
// # Container Lifecycle
//
//  1. Create: store := container.NewStore(); c := container.New(store)
//  2. Declare classes and modules: store.Define(...), store.DefineModule(...)
//  3. Register: c.RegisterModuleRef(container.TypeOf[*AppModule]())
//  4. Resolve: container.ResolveType[*Service](c, "billing")
//
// # Tokens
//
//	container.TypeOf[*Service]()   // class token
//	container.TypeOf[Repository]() // interface token, needs a provider
//	container.Named("db.primary")  // symbolic token
//
// # Classes
//
//	store.Define(
//	    container.Class[*Service](NewService).
//	        InjectAt(0, container.Named("db.primary")).
//	        InScope(container.ScopeModule),
//	)
//
// Undeclared struct and pointer-to-struct types are built from their zero
// value the first time they are resolved.
//
// # Providers
//
//	container.TypeOf[*Service]()                                            // bare class
//	container.ClassProvider{Token: container.TypeOf[Repo](), UseClass: container.TypeOf[*pgRepo]()}
//	container.ValueProvider{Token: container.Named("db.dsn"), UseValue: "postgres://..."}
//	container.FactoryProvider{Token: container.Named("db"), UseFactory: openDB,
//	    Inject: []container.Token{container.Named("db.dsn")}}
//
// Scope: an explicit Scope wins, then the class's declared scope, then
// global for top-level registrations and module for module providers.
//
// # Modules
//
//	store.DefineModule(container.TypeOf[*BillingModule](), container.ModuleDescriptor{
//	    Name:      "billing",
//	    Providers: []any{container.TypeOf[*Invoicer]()},
//	    Exports:   []container.Token{container.TypeOf[*Invoicer]()},
//	})
//	store.DefineModule(container.TypeOf[*OrdersModule](), container.ModuleDescriptor{
//	    Name:    "orders",
//	    Imports: []container.Token{container.TypeOf[*BillingModule]()},
//	})
//
// Imports are registered eagerly and transitively. Lookup precedence is
// module-local, then exported, then global. Without a module context a
// global registration wins over an export.
//
// # Aliases and decorators
//
//	c.Alias(container.Named("log"), container.TypeOf[zerolog.Logger]())
//	c.Extend(container.TypeOf[Repository](), wrapWithTracing)
//
// An alias resolves to its target's instance. Extenders run once per
// construction, before the instance is cached.
//
// # Module-local overrides
//
//	c.When("orders").Needs(container.TypeOf[Clock]()).GiveValue(fixedClock)
package container
