package capability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/km-arc/go-ioc/framework/container"
)

// Binding is one resolved, tagged provider handed to its consumer.
type Binding struct {
	Module     string
	Token      container.Token
	Capability string
	Instance   any
	Marker     any
}

// Consumer wires instances of one capability into the rest of the system.
type Consumer interface {
	Capability() string
	Consume(ctx context.Context, b Binding) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc struct {
	Name string
	Fn   func(ctx context.Context, b Binding) error
}

func (f ConsumerFunc) Capability() string                           { return f.Name }
func (f ConsumerFunc) Consume(ctx context.Context, b Binding) error { return f.Fn(ctx, b) }

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(ld *Loader) { ld.log = l.With().Str("component", "capability").Logger() }
}

// Loader validates capability metadata across all registered modules and
// then hands each tagged instance to its consumer.
type Loader struct {
	c         *container.Container
	log       zerolog.Logger
	consumers map[string]Consumer
	loaded    bool
	bindings  []Binding
	// bindings already consumed, so a retried Load resumes where it stopped
	consumed map[bindingKey]bool
}

type bindingKey struct {
	module     string
	token      container.Token
	capability string
}

// NewLoader creates a loader reading modules from c.
func NewLoader(c *container.Container, opts ...Option) *Loader {
	l := &Loader{
		c:         c,
		log:       zerolog.Nop(),
		consumers: make(map[string]Consumer),
		consumed:  make(map[bindingKey]bool),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Use registers consumers. A later consumer for the same capability
// replaces the earlier one.
func (l *Loader) Use(consumers ...Consumer) *Loader {
	for _, cons := range consumers {
		l.consumers[cons.Capability()] = cons
	}
	return l
}

// tagged is a provider awaiting resolution.
type tagged struct {
	module string
	desc   container.Descriptor
	marker any
}

// Validate walks modules in registration order and reports every tagged
// provider lacking a consumer or a baseline marker in one aggregate error.
// It resolves nothing.
func (l *Loader) Validate() error {
	_, err := l.collect()
	return err
}

func (l *Loader) collect() ([]tagged, error) {
	var (
		out  []tagged
		errs error
	)
	store := l.c.Store()
	for _, d := range l.c.Tagged("") {
		if _, ok := l.consumers[d.Capability]; !ok {
			errs = multierr.Append(errs, &UnknownCapabilityError{Module: d.ModuleName, Token: d.Token, Capability: d.Capability})
			continue
		}
		marker := d.Marker
		if marker == nil {
			marker, _ = store.Marker(d.ImplType(), d.Capability)
		}
		if marker == nil {
			errs = multierr.Append(errs, &MissingMarkerError{Module: d.ModuleName, Token: d.Token, Capability: d.Capability})
			continue
		}
		out = append(out, tagged{module: d.ModuleName, desc: d, marker: marker})
	}
	if errs != nil {
		return nil, &MissingCapabilityMetadataError{err: errs}
	}
	return out, nil
}

// Load validates, then resolves every tagged provider once in its module's
// context and passes it to the consumer. Any failure aborts startup. A
// second call after success is a no-op. A call after a failure skips the
// bindings its consumers already accepted.
func (l *Loader) Load(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	items, err := l.collect()
	if err != nil {
		return err
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := bindingKey{module: it.module, token: it.desc.Token, capability: it.desc.Capability}
		if l.consumed[key] {
			continue
		}
		inst, err := l.c.Resolve(it.desc.Token, it.module)
		if err != nil {
			return err
		}
		b := Binding{
			Module:     it.module,
			Token:      it.desc.Token,
			Capability: it.desc.Capability,
			Instance:   inst,
			Marker:     it.marker,
		}
		if err := l.consumers[b.Capability].Consume(ctx, b); err != nil {
			return fmt.Errorf("capability %q: consuming [%s] from module %q: %w", b.Capability, b.Token, b.Module, err)
		}
		l.consumed[key] = true
		l.bindings = append(l.bindings, b)
		l.log.Info().Str("module", b.Module).Str("token", b.Token.String()).
			Str("capability", b.Capability).Msg("capability bound")
	}
	l.loaded = true
	return nil
}

// Bindings returns what Load handed to consumers, in order.
func (l *Loader) Bindings() []Binding { return append([]Binding(nil), l.bindings...) }
