package streamjson

// PathValidator is an optional hook for validating parsed values as they
// stabilize, typically against an application schema. Implementations must
// be safe for concurrent use; they are called from whatever goroutine
// feeds the session.
type PathValidator interface {
	ValidatePath(path string, value any, ctx ValidationContext) ValidationResult
}

// PathValidatorFunc adapts a function to the PathValidator interface.
type PathValidatorFunc func(path string, value any, ctx ValidationContext) ValidationResult

func (f PathValidatorFunc) ValidatePath(path string, value any, ctx ValidationContext) ValidationResult {
	return f(path, value, ctx)
}
