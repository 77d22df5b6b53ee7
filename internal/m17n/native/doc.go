// Package native binds libm17n through cgo. It is compiled only with the
// m17n build tag:
//
//	go build -tags m17n ./cmd/ibus-engine-m17n
//
// Callbacks from libm17n reach Go through a single exported trampoline.
// Each context carries a cgo.Handle of its Go wrapper in the
// MInputContext arg field, so callbacks emitted while minput_create_ic is
// still running already resolve to the right context.
package native
