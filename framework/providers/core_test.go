package providers_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/commands"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/events"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
)

func TestRegister_ExposesCoreServicesEverywhere(t *testing.T) {
	c := container.New(nil)
	s := providers.Services{
		Config:   &config.Config{},
		Log:      zerolog.Nop(),
		Router:   routing.New(),
		Commands: commands.NewRegistry(),
		Events:   events.NewBus(),
	}
	require.NoError(t, providers.Register(c, s))

	reg, err := container.Resolve[*commands.Registry](c, container.TypeOf[*commands.Registry](), "some-module")
	require.NoError(t, err)
	assert.Same(t, s.Commands, reg)

	router, err := container.Resolve[*routing.Router](c, container.Named("router"))
	require.NoError(t, err)
	assert.Same(t, s.Router, router)

	cfg := container.MustResolve[*config.Config](c, container.Named("config"), "other")
	assert.Same(t, s.Config, cfg)

	m, ok := c.Module(providers.ModuleName)
	require.True(t, ok)
	assert.True(t, m.Global)
	assert.Len(t, m.Providers, 5)
}

func TestRegister_AliasesShareTheClassBinding(t *testing.T) {
	c := container.New(nil)
	s := providers.Services{Config: &config.Config{}, Log: zerolog.Nop(), Router: routing.New(),
		Commands: commands.NewRegistry(), Events: events.NewBus()}
	require.NoError(t, providers.Register(c, s))

	for name, tok := range providers.Aliases {
		assert.True(t, c.Bound(container.Named(name)), name)
		byAlias, err := c.Resolve(container.Named(name), "any")
		require.NoError(t, err)
		byType, err := c.Resolve(tok, "any")
		require.NoError(t, err)
		assert.Equal(t, byType, byAlias, name)
	}

	// replacing the class binding is seen through the alias
	bus := events.NewBus()
	require.NoError(t, c.RegisterProviders([]any{
		container.ValueProvider{Token: container.TypeOf[*events.Bus](), UseValue: bus},
	}, container.ProviderContext{}, nil))
	assert.Same(t, bus, container.MustResolve[*events.Bus](c, container.Named("events")))
}
