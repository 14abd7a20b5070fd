package minimact

import "errors"

// Sentinel errors returned by Engine and Component methods (§7's
// Input-invalid category at the public boundary).
var (
	// ErrComponentTypeNotRegistered is returned by NewComponent when no
	// class descriptor has been registered for the requested type.
	ErrComponentTypeNotRegistered = errors.New("minimact: component type not registered")

	// ErrComponentTypeExists is returned by RegisterComponentType when the
	// registry already holds a descriptor for that type name.
	ErrComponentTypeExists = errors.New("minimact: component type already registered")

	// ErrEngineSealed is returned by RegisterComponentType once Seal has
	// been called; the registry is read-only for the rest of the process
	// lifetime (spec §5's shared-resource policy).
	ErrEngineSealed = errors.New("minimact: engine is sealed, no further component types may be registered")

	// ErrComponentIDRequired is returned by NewComponent when called with
	// an empty component ID.
	ErrComponentIDRequired = errors.New("minimact: component id must not be empty")
)
