package container

import (
	"reflect"
	"sync"
)

// Scope is the lifetime and sharing domain of a cached instance.
type Scope int

const (
	// ScopeUnset means "not specified"; the normalizer picks one.
	ScopeUnset Scope = iota
	// ScopeGlobal instances are shared by the whole process.
	ScopeGlobal
	// ScopeModule instances are shared within their owning module.
	ScopeModule
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeModule:
		return "module"
	default:
		return "unset"
	}
}

// Store is the metadata side table: class definitions keyed by type and
// module descriptors keyed by module reference. It is written at
// definition time and read by the normalizer, the container and the loader.
//
// One Store is created by the entry point and handed to container.New.
type Store struct {
	mu      sync.RWMutex
	classes map[reflect.Type]*ClassDef
	modules map[Token]ModuleDescriptor
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		classes: make(map[reflect.Type]*ClassDef),
		modules: make(map[Token]ModuleDescriptor),
	}
}

// Define records class metadata. Redefining a type replaces it.
func (s *Store) Define(defs ...*ClassDef) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range defs {
		s.classes[d.typ] = d
	}
	return s
}

// Class returns the definition recorded for t.
func (s *Store) Class(t reflect.Type) (*ClassDef, bool) {
	if s == nil || t == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.classes[t]
	return d, ok
}

// Marker returns the baseline marker recorded on t for capability.
func (s *Store) Marker(t reflect.Type, capability string) (any, bool) {
	d, ok := s.Class(t)
	if !ok {
		return nil, false
	}
	return d.Marker(capability)
}

// DefineModule attaches a module descriptor to a module reference (usually
// the class token of the module's own type).
func (s *Store) DefineModule(ref Token, desc ModuleDescriptor) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[ref] = desc
	return s
}

// ModuleDescriptor returns the descriptor attached to ref.
func (s *Store) ModuleDescriptor(ref Token) (ModuleDescriptor, bool) {
	if s == nil {
		return ModuleDescriptor{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.modules[ref]
	return d, ok
}

// Constructible reports whether tok can be built without an explicit
// provider: a class token with a definition, or a struct / pointer-to-struct.
func (s *Store) Constructible(tok Token) bool {
	if !tok.IsClass() {
		return false
	}
	if _, ok := s.Class(tok.typ); ok {
		return true
	}
	return zeroConstructible(tok.typ)
}

// classFor returns the definition for t, synthesising a zero-value one for
// undeclared struct types.
func (s *Store) classFor(t reflect.Type) (*ClassDef, bool) {
	if d, ok := s.Class(t); ok {
		return d, true
	}
	if zeroConstructible(t) {
		return &ClassDef{typ: t}, true
	}
	return nil, false
}
