// Package sentinel provides an immutable error type for sentinel error declarations.
//
// Sentinel errors declared with errors.New are variables that consumers can
// reassign. Error is a string-based error type that can be declared as a
// const, making sentinels truly immutable while remaining compatible with
// errors.Is across wrapped error chains.
package sentinel
