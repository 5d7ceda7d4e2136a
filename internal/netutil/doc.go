// Package netutil provides network utility functions for portshare.
//
// PortRegistry allocates kernel-assigned loopback ports and tracks ports
// reserved within the process, preventing duplicate allocation from the
// TOCTOU race between concurrent callers. PortLease claims a fixed port
// across processes via a lock file, so concurrent test binaries on one
// machine do not both start a server on the same port.
package netutil
