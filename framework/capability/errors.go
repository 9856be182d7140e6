package capability

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/km-arc/go-ioc/framework/container"
)

var (
	ErrMissingCapabilityMetadata = errors.New("capability: missing capability metadata")
	ErrMissingMarker             = errors.New("capability: missing marker")
	ErrUnknownCapability         = errors.New("capability: unknown capability")
)

// MissingMarkerError reports a tagged provider without the baseline marker
// its capability requires.
type MissingMarkerError struct {
	Module     string
	Token      container.Token
	Capability string
}

func (e *MissingMarkerError) Error() string {
	return fmt.Sprintf("module %q: [%s] is tagged %q but carries no %q marker", e.Module, e.Token, e.Capability, e.Capability)
}

func (e *MissingMarkerError) Is(target error) bool { return target == ErrMissingMarker }

// UnknownCapabilityError reports a provider tagged with a capability no
// consumer handles.
type UnknownCapabilityError struct {
	Module     string
	Token      container.Token
	Capability string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("module %q: [%s] is tagged %q but no consumer handles it", e.Module, e.Token, e.Capability)
}

func (e *UnknownCapabilityError) Is(target error) bool { return target == ErrUnknownCapability }

// MissingCapabilityMetadataError is the single aggregate returned by
// Validate. It lists every offender found in one pass.
type MissingCapabilityMetadataError struct {
	err error
}

func (e *MissingCapabilityMetadataError) Error() string {
	errs := e.Errors()
	return fmt.Sprintf("capability: %d provider(s) lack capability metadata: %v", len(errs), e.err)
}

// Errors returns the individual offenders in discovery order.
func (e *MissingCapabilityMetadataError) Errors() []error { return multierr.Errors(e.err) }

func (e *MissingCapabilityMetadataError) Unwrap() []error { return e.Errors() }

func (e *MissingCapabilityMetadataError) Is(target error) bool {
	return target == ErrMissingCapabilityMetadata
}
