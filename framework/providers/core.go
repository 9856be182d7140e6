package providers

import (
	"github.com/rs/zerolog"

	"github.com/km-arc/go-ioc/framework/commands"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/events"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ModuleName is the name the framework core module registers under.
const ModuleName = "framework"

// Core is the module class of the framework core module.
type Core struct{}

// Ref is the module reference the core descriptor is stored under.
var Ref = container.TypeOf[*Core]()

// Services are the process-wide objects the core module exposes.
type Services struct {
	Config   *config.Config
	Log      zerolog.Logger
	Router   *routing.Router
	Commands *commands.Registry
	Events   *events.Bus
}

// Module builds the framework core module. It is Global, so every provider
// is visible from any module context.
func Module(s Services) container.ModuleDescriptor {
	desc := container.ModuleDescriptor{Name: ModuleName, Global: true}
	for _, e := range []struct {
		tok container.Token
		v   any
	}{
		{container.TypeOf[*config.Config](), s.Config},
		{container.TypeOf[zerolog.Logger](), s.Log},
		{container.TypeOf[*routing.Router](), s.Router},
		{container.TypeOf[*commands.Registry](), s.Commands},
		{container.TypeOf[*events.Bus](), s.Events},
	} {
		desc.Providers = append(desc.Providers, container.ValueProvider{Token: e.tok, UseValue: e.v})
		desc.Exports = append(desc.Exports, e.tok)
	}
	return desc
}

// Aliases maps the symbolic names of core services to their class tokens.
//
//	"config"   *config.Config
//	"log"      zerolog.Logger
//	"router"   *routing.Router
//	"commands" *commands.Registry
//	"events"   *events.Bus
var Aliases = map[string]container.Token{
	"config":   container.TypeOf[*config.Config](),
	"log":      container.TypeOf[zerolog.Logger](),
	"router":   container.TypeOf[*routing.Router](),
	"commands": container.TypeOf[*commands.Registry](),
	"events":   container.TypeOf[*events.Bus](),
}

// Register attaches the core descriptor to store under Ref, registers it and
// aliases each symbolic name to its class token.
func Register(c *container.Container, s Services) error {
	c.Store().DefineModule(Ref, Module(s))
	if err := c.RegisterModuleRef(Ref); err != nil {
		return err
	}
	for name, tok := range Aliases {
		if err := c.Alias(container.Named(name), tok); err != nil {
			return err
		}
	}
	return nil
}
