package container

import (
	"fmt"
	"reflect"
)

// ── Registration shapes ───────────────────────────────────────────────────────

// ClassProvider binds Token to the class UseClass.
//
//	container.ClassProvider{Token: container.TypeOf[Repository](), UseClass: container.TypeOf[*pgRepository]()}
type ClassProvider struct {
	Token      Token
	UseClass   Token
	Scope      Scope
	Capability string
	Marker     any
	Override   bool
}

// ValueProvider binds Token to a fixed value.
type ValueProvider struct {
	Token      Token
	UseValue   any
	Scope      Scope
	Capability string
	Marker     any
	Override   bool
}

// FactoryProvider binds Token to the result of UseFactory, a func returning
// T or (T, error). Inject lists the tokens passed positionally; nil means
// the factory's parameter types.
type FactoryProvider struct {
	Token      Token
	UseFactory any
	Inject     []Token
	Scope      Scope
	Capability string
	Marker     any
	Override   bool
}

// ── Descriptor ────────────────────────────────────────────────────────────────

// Kind selects which Use* field of a Descriptor is meaningful.
type Kind int

const (
	KindClass Kind = iota + 1
	KindValue
	KindFactory
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindValue:
		return "value"
	case KindFactory:
		return "factory"
	default:
		return "unknown"
	}
}

// Descriptor is the uniform form of every registration.
type Descriptor struct {
	Token      Token
	Scope      Scope
	ModuleName string
	Kind       Kind

	UseClass   Token
	UseValue   any
	UseFactory reflect.Value
	Inject     []Token

	Capability string
	Marker     any
	Override   bool

	factoryErr bool
}

// ImplType returns the type that implements the descriptor: the class type,
// the dynamic type of the value, or the factory's first result type.
func (d Descriptor) ImplType() reflect.Type {
	switch d.Kind {
	case KindClass:
		return d.UseClass.typ
	case KindValue:
		return reflect.TypeOf(d.UseValue)
	case KindFactory:
		if d.UseFactory.IsValid() {
			return d.UseFactory.Type().Out(0)
		}
	}
	return nil
}

// ProviderContext is the owning-module context of a registration.
// A zero context means a top-level (global) registration.
type ProviderContext struct {
	ModuleName string
	// Global marks a module whose unscoped providers default to global.
	Global bool
}

func (pc ProviderContext) owned() bool { return pc.ModuleName != "" && !pc.Global }

// ── Normalizer ────────────────────────────────────────────────────────────────

// Normalize turns one registration entry into a Descriptor. It accepts a
// bare class (Token or *ClassDef), ClassProvider, ValueProvider or
// FactoryProvider, by value or pointer. store supplies class defaults and may
// be nil.
//
// Scope resolution: explicit scope, else the class's declared scope, else
// global without an owning module and module with one.
func Normalize(entry any, pc ProviderContext, store *Store) (Descriptor, error) {
	invalid := func(reason string, a ...any) (Descriptor, error) {
		return Descriptor{}, &InvalidProviderShapeError{Module: pc.ModuleName, Entry: entry, Reason: fmt.Sprintf(reason, a...)}
	}

	switch p := entry.(type) {
	case Token:
		if !p.IsClass() {
			return invalid("bare token [%s] is not a class", p)
		}
		return Normalize(ClassProvider{Token: p, UseClass: p}, pc, store)

	case *ClassDef:
		if p == nil {
			return invalid("nil class definition")
		}
		return Normalize(ClassProvider{Token: p.Token(), UseClass: p.Token()}, pc, store)

	case *ClassProvider:
		if p == nil {
			return invalid("nil provider")
		}
		return Normalize(*p, pc, store)
	case *ValueProvider:
		if p == nil {
			return invalid("nil provider")
		}
		return Normalize(*p, pc, store)
	case *FactoryProvider:
		if p == nil {
			return invalid("nil provider")
		}
		return Normalize(*p, pc, store)

	case ClassProvider:
		if p.Token.IsZero() {
			return invalid("missing token")
		}
		if !p.UseClass.IsClass() {
			return invalid("useClass for [%s] is not a class token", p.Token)
		}
		def, _ := store.Class(p.UseClass.typ)
		capability := p.Capability
		var declared Scope
		if def != nil {
			declared = def.scope
			if capability == "" {
				capability = def.tag
			}
		}
		return checkOwner(Descriptor{
			Token:      p.Token,
			Scope:      resolveScope(p.Scope, declared, pc),
			ModuleName: pc.ModuleName,
			Kind:       KindClass,
			UseClass:   p.UseClass,
			Capability: capability,
			Marker:     p.Marker,
			Override:   p.Override,
		}, entry)

	case ValueProvider:
		if p.Token.IsZero() {
			return invalid("missing token")
		}
		return checkOwner(Descriptor{
			Token:      p.Token,
			Scope:      resolveScope(p.Scope, ScopeUnset, pc),
			ModuleName: pc.ModuleName,
			Kind:       KindValue,
			UseValue:   p.UseValue,
			Capability: p.Capability,
			Marker:     p.Marker,
			Override:   p.Override,
		}, entry)

	case FactoryProvider:
		if p.Token.IsZero() {
			return invalid("missing token")
		}
		if p.UseFactory == nil {
			return invalid("nil factory for [%s]", p.Token)
		}
		fn := reflect.ValueOf(p.UseFactory)
		ft := fn.Type()
		if ft.Kind() != reflect.Func {
			return invalid("factory for [%s] is %s, not a func", p.Token, ft)
		}
		if ft.IsVariadic() {
			return invalid("factory for [%s] is variadic", p.Token)
		}
		returnErr, err := checkReturns(ft, nil)
		if err != nil {
			return invalid("factory for [%s] %v", p.Token, err)
		}
		inject := p.Inject
		if inject == nil {
			inject = paramTokens(ft)
		}
		if len(inject) != ft.NumIn() {
			return invalid("factory for [%s] takes %d parameters, %d inject tokens given", p.Token, ft.NumIn(), len(inject))
		}
		return checkOwner(Descriptor{
			Token:      p.Token,
			Scope:      resolveScope(p.Scope, ScopeUnset, pc),
			ModuleName: pc.ModuleName,
			Kind:       KindFactory,
			UseFactory: fn,
			Inject:     append([]Token(nil), inject...),
			Capability: p.Capability,
			Marker:     p.Marker,
			Override:   p.Override,
			factoryErr: returnErr,
		}, entry)
	}

	return invalid("expected a class token, *ClassDef, ClassProvider, ValueProvider or FactoryProvider")
}

// checkOwner rejects module-scoped descriptors that have no owning module.
func checkOwner(d Descriptor, entry any) (Descriptor, error) {
	if d.Scope == ScopeModule && d.ModuleName == "" {
		return Descriptor{}, &InvalidProviderShapeError{Entry: entry, Reason: fmt.Sprintf("[%s] is module-scoped but has no owning module", d.Token)}
	}
	return d, nil
}

func resolveScope(explicit, declared Scope, pc ProviderContext) Scope {
	if explicit != ScopeUnset {
		return explicit
	}
	if declared != ScopeUnset {
		return declared
	}
	if pc.owned() {
		return ScopeModule
	}
	return ScopeGlobal
}
