// Package kvserver implements the stock server used by portshare: a small
// TCP key/value server backed by a per-server SQLite database.
//
// The wire protocol is one command per line with a one-line reply,
// "+"-prefixed on success and "-"-prefixed on failure:
//
//	PING            → +PONG
//	SET key value   → +OK
//	GET key         → +value | -NOTFOUND
//	DEL key         → +OK    | -NOTFOUND
//
// Builder produces servers for requested ports, allocating kernel ports for
// requested port 0 and claiming fixed ports across processes via lease
// files. It is the default builder wired into the public portshare Manager;
// tests that need a different server supply their own builder instead.
package kvserver
