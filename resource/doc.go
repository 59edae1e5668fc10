// Package resource provides handle tables for host-side values.
//
// Go callers never see raw linear-memory pointers for packages they hold
// through a session; they get a Handle instead. The table maps handles to
// values and calls Drop on values that implement Dropper when their handle
// is removed, which makes releasing a handle twice harmless.
//
//	table := resource.NewTable()
//	h, _ := table.Insert(kind, value)
//	value, ok := table.Get(h)
//	value, ok = table.Remove(h) // Drop runs here
//
// Observers receive EventCreated and EventDropped notifications.
package resource
