package sql

import (
	"sync/atomic"

	"github.com/kroma-labs/sqlevent/event"
)

var installed atomic.Pointer[event.Client]

// Install sets a process-wide fallback client and returns a function
// restoring the previous one.
//
// This is a compatibility shim for application wiring that cannot pass a
// client to every Open call. The fallback is consulted only when WithClient
// is absent, and only at the time a driver, connector or database is
// created.
//
// Example:
//
//	restore := sqlevent.Install(client)
//	defer restore()
func Install(client *event.Client) (restore func()) {
	prev := installed.Swap(client)
	return func() {
		installed.Store(prev)
	}
}

// InstalledClient returns the client set by Install, or nil.
func InstalledClient() *event.Client {
	return installed.Load()
}
