package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is a string-backed error type that can be declared as a const.
// Unlike errors.New, which produces a mutable package-level var, const
// sentinels cannot be reassigned by consumers.
//
// Because Error is comparable, the default == comparison used by errors.Is
// matches it through wrapped error chains without an Is method.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
