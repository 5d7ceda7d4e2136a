// Package fileutil provides file operation utilities for directory management.
//
// EnsureDir creates directories recursively. It is used for preparing
// per-server data directories and lease directories.
package fileutil
