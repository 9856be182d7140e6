package container

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ClassDef is the declared metadata of a constructible type: how to build
// it, which tokens feed its constructor, its default scope and the
// capability it carries.
//
//	var ServiceClass = container.Class[*Service](NewService).
//	    InjectAt(1, container.Named("db.primary")).
//	    InScope(container.ScopeModule)
type ClassDef struct {
	typ       reflect.Type
	ctor      reflect.Value
	inject    []Token
	scope     Scope
	tag       string
	markers   map[string]any
	returnErr bool
}

// Class declares T with constructor ctor. ctor must be a func returning T or
// (T, error); nil means T is built from its zero value. The dependency list
// defaults to ctor's parameter types, in order.
//
// Class panics on a malformed constructor; it runs at definition time.
func Class[T any](ctor any) *ClassDef {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	def := &ClassDef{typ: typ}
	if ctor == nil {
		return def
	}

	fn := reflect.ValueOf(ctor)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("container: Class[%s]: constructor is %s, not a func", TypeKey(typ), ft))
	}
	if ft.IsVariadic() {
		panic(fmt.Sprintf("container: Class[%s]: variadic constructors are not supported", TypeKey(typ)))
	}
	returnErr, err := checkReturns(ft, typ)
	if err != nil {
		panic(fmt.Sprintf("container: Class[%s]: %v", TypeKey(typ), err))
	}

	def.ctor = fn
	def.returnErr = returnErr
	def.inject = paramTokens(ft)
	return def
}

// Inject replaces the whole dependency list. The count must match the
// constructor arity.
func (d *ClassDef) Inject(tokens ...Token) *ClassDef {
	if d.ctor.IsValid() && len(tokens) != d.ctor.Type().NumIn() {
		panic(fmt.Sprintf("container: Class[%s]: Inject got %d tokens for %d parameters",
			TypeKey(d.typ), len(tokens), d.ctor.Type().NumIn()))
	}
	d.inject = append([]Token(nil), tokens...)
	return d
}

// InjectAt overrides the token for the i-th constructor parameter.
func (d *ClassDef) InjectAt(i int, tok Token) *ClassDef {
	if i < 0 || i >= len(d.inject) {
		panic(fmt.Sprintf("container: Class[%s]: InjectAt(%d) out of range", TypeKey(d.typ), i))
	}
	d.inject[i] = tok
	return d
}

// InScope sets the default scope used when a registration does not name one.
func (d *ClassDef) InScope(s Scope) *ClassDef {
	d.scope = s
	return d
}

// Tag sets the capability the class carries by default.
func (d *ClassDef) Tag(capability string) *ClassDef {
	d.tag = capability
	return d
}

// Mark records the baseline marker for a capability (command name, event
// name, route prefix ...). Consumers receive it alongside the instance.
func (d *ClassDef) Mark(capability string, marker any) *ClassDef {
	if d.markers == nil {
		d.markers = make(map[string]any)
	}
	d.markers[capability] = marker
	return d
}

// Token returns the class token for the declared type.
func (d *ClassDef) Token() Token { return TokenOf(d.typ) }

// Type returns the declared type.
func (d *ClassDef) Type() reflect.Type { return d.typ }

// Dependencies returns a copy of the ordered dependency tokens.
func (d *ClassDef) Dependencies() []Token { return append([]Token(nil), d.inject...) }

// Scope returns the declared default scope (ScopeUnset if none).
func (d *ClassDef) Scope() Scope { return d.scope }

// Capability returns the declared capability tag.
func (d *ClassDef) Capability() string { return d.tag }

// Marker returns the marker recorded for capability.
func (d *ClassDef) Marker(capability string) (any, bool) {
	m, ok := d.markers[capability]
	return m, ok
}

// construct calls the constructor positionally, or builds a zero value.
func (d *ClassDef) construct(args []reflect.Value) (any, error) {
	if !d.ctor.IsValid() {
		return zeroInstance(d.typ), nil
	}
	return call(d.ctor, args, d.returnErr)
}

// zeroInstance builds a fresh zero value of t; pointer types get a new
// allocation of their element.
func zeroInstance(t reflect.Type) any {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Elem().Interface()
}

// zeroConstructible reports whether t can be built without a ClassDef.
func zeroConstructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		return t.Elem().Kind() == reflect.Struct
	}
	return t.Kind() == reflect.Struct
}

func paramTokens(ft reflect.Type) []Token {
	out := make([]Token, ft.NumIn())
	for i := range out {
		out[i] = TokenOf(ft.In(i))
	}
	return out
}

// checkReturns validates a constructor/factory result list. want may be nil
// to accept any first result type.
func checkReturns(ft reflect.Type, want reflect.Type) (returnErr bool, err error) {
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return false, fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		returnErr = true
	default:
		return false, fmt.Errorf("must return T or (T, error), returns %d values", ft.NumOut())
	}
	if want != nil && !ft.Out(0).AssignableTo(want) {
		return false, fmt.Errorf("returns %s, not assignable to %s", ft.Out(0), want)
	}
	return returnErr, nil
}

// call invokes fn and unpacks (T) or (T, error).
func call(fn reflect.Value, args []reflect.Value, returnErr bool) (any, error) {
	out := fn.Call(args)
	if returnErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
