// Package core provides the internal implementation of the portshare library.
// It contains the Registry (reference-counted port→server registry with a
// single-mutex discipline, builder delegation, and fail-fast unbalanced-release
// detection), the Manager (configured builder, timeouts, shutdown drain), and
// the Builder/Handle collaborator interfaces.
package core
