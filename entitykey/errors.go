package entitykey

// Error codes raised while resolving keys and building key predicates.
const (
	// CodeKeyMissing is returned when an entity type declares no primary key.
	CodeKeyMissing = "ENTITY_KEY_MISSING"
	// CodeKeyComposite is returned when an entity type declares a multi-column primary key.
	CodeKeyComposite = "ENTITY_KEY_COMPOSITE"
	// CodeKeyUnsupported is returned when the key field (or the entity itself) has a shape
	// the engine cannot address, e.g. a pointer-typed key or a non-struct model.
	CodeKeyUnsupported = "ENTITY_KEY_UNSUPPORTED"
	// CodeKeyMismatch is returned when a repository is instantiated with a key type
	// other than the one the entity declares.
	CodeKeyMismatch = "ENTITY_KEY_MISMATCH"
	// CodeNotRegistered is returned when an entity type was not registered at startup.
	CodeNotRegistered = "ENTITY_NOT_REGISTERED"
	// CodeInvalidKey is returned when a caller value cannot be coerced to the key type.
	CodeInvalidKey = "INVALID_KEY"
	// CodeInvalidArgument is returned for nil or out-of-range arguments, before any I/O.
	CodeInvalidArgument = "INVALID_ARGUMENT"
)
