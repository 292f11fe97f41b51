package errors

// ConfigInvalid reports a malformed deck configuration.
func ConfigInvalid(deck, reason string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "invalid deck configuration").
		WithContext("deck", deck).
		WithContext("reason", reason)
}

// ConfigNotFound reports a missing configuration file.
func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

// DeckNotFound reports an unknown deck name.
func DeckNotFound(name string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "deck not defined").
		WithContext("deck", name)
}

// ResolveFailed reports that a deck's slide order could not be resolved.
func ResolveFailed(deck string, cause error) *BuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "slide order resolution failed").
		WithContext("deck", deck)
}

// RenderFailed describes a single slide that could not be rendered. It is
// recorded in the run report, never returned from a run.
func RenderFailed(source string, cause error) *BuildError {
	return Wrap(cause, CategoryRender, SeverityError, "slide render failed").
		WithContext("source", source)
}

// AnnotationFailed reports a slide handle that refused its annotation.
func AnnotationFailed(position int, source string, cause error) *BuildError {
	return Wrap(cause, CategoryAnnotation, SeverityFatal, "annotation attachment failed").
		WithContext("position", position).
		WithContext("source", source)
}

// PersistFailed reports that the compiled artifact could not be written.
func PersistFailed(output string, cause error) *BuildError {
	return Wrap(cause, CategoryPersist, SeverityFatal, "artifact persistence failed").
		WithContext("output", output)
}

// StorageError reports a storage backend failure.
func StorageError(operation, key string, cause error) *BuildError {
	return Wrap(cause, CategoryStorage, SeverityFatal, "storage operation failed").
		WithContext("operation", operation).
		WithContext("key", key)
}

// InternalError wraps an unexpected failure.
func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
