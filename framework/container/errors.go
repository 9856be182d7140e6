package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below matches exactly one.
var (
	ErrMissingProvider         = errors.New("container: missing provider")
	ErrMissingModuleDescriptor = errors.New("container: missing module descriptor")
	ErrInvalidProviderShape    = errors.New("container: invalid provider shape")
	ErrInvalidModule           = errors.New("container: invalid module descriptor")
	ErrCyclicDependency        = errors.New("container: cyclic dependency")
	ErrConstruction            = errors.New("container: construction failed")
	ErrDuplicateProvider       = errors.New("container: duplicate provider")
	ErrDuplicateModule         = errors.New("container: duplicate module")
	ErrAliasCycle              = errors.New("container: alias cycle")
)

// MissingProviderError is returned by Resolve when no descriptor matches the
// token and the token is not a constructible class.
type MissingProviderError struct {
	Token  Token
	Module string
}

func (e *MissingProviderError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("container: no provider for [%s]", e.Token)
	}
	return fmt.Sprintf("container: no provider for [%s] in module %q", e.Token, e.Module)
}

func (e *MissingProviderError) Is(target error) bool { return target == ErrMissingProvider }

// MissingModuleDescriptorError is returned when a module imports a reference
// that has no descriptor in the Store.
type MissingModuleDescriptorError struct {
	Module string
	Import Token
}

func (e *MissingModuleDescriptorError) Error() string {
	return fmt.Sprintf("container: module %q imports [%s] which has no module descriptor", e.Module, e.Import)
}

func (e *MissingModuleDescriptorError) Is(target error) bool {
	return target == ErrMissingModuleDescriptor
}

// InvalidProviderShapeError is returned by Normalize for a registration entry
// that is none of the accepted shapes, or is one of them but malformed.
type InvalidProviderShapeError struct {
	Module string
	Entry  any
	Reason string
}

func (e *InvalidProviderShapeError) Error() string {
	where := ""
	if e.Module != "" {
		where = fmt.Sprintf(" in module %q", e.Module)
	}
	return fmt.Sprintf("container: invalid provider %T%s: %s", e.Entry, where, e.Reason)
}

func (e *InvalidProviderShapeError) Is(target error) bool { return target == ErrInvalidProviderShape }

// InvalidModuleError wraps descriptor validation failures.
type InvalidModuleError struct {
	Module string
	Err    error
}

func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("container: invalid module %q: %v", e.Module, e.Err)
}

func (e *InvalidModuleError) Unwrap() error        { return e.Err }
func (e *InvalidModuleError) Is(target error) bool { return target == ErrInvalidModule }

// CyclicDependencyError is returned when a token is requested again while it
// is still being built. Path lists the chain, first and last entries equal.
type CyclicDependencyError struct {
	Path []Token
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, t := range e.Path {
		parts[i] = t.String()
	}
	return "container: cyclic dependency: " + strings.Join(parts, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// ConstructionError wraps an error returned by a constructor or factory.
type ConstructionError struct {
	Token  Token
	Module string
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("container: building [%s]: %v", e.Token, e.Err)
}

func (e *ConstructionError) Unwrap() error        { return e.Err }
func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }

// DuplicateProviderError is returned in strict mode when a token is
// registered twice in the same scope without Override.
type DuplicateProviderError struct {
	Token  Token
	Module string
}

func (e *DuplicateProviderError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("container: [%s] already registered globally", e.Token)
	}
	return fmt.Sprintf("container: [%s] already registered in module %q", e.Token, e.Module)
}

func (e *DuplicateProviderError) Is(target error) bool { return target == ErrDuplicateProvider }

// DuplicateModuleError is returned in strict mode when two different
// descriptors share a module name.
type DuplicateModuleError struct {
	Module string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("container: module %q already registered", e.Module)
}

func (e *DuplicateModuleError) Is(target error) bool { return target == ErrDuplicateModule }

// AliasCycleError is returned by Alias when the alias would end up naming
// itself.
type AliasCycleError struct {
	Alias  Token
	Target Token
}

func (e *AliasCycleError) Error() string {
	return fmt.Sprintf("container: aliasing [%s] to [%s] would make it an alias of itself", e.Alias, e.Target)
}

func (e *AliasCycleError) Is(target error) bool { return target == ErrAliasCycle }
