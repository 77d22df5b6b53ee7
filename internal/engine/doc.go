// Package engine turns key events into input-method actions and projects
// the resulting input-context state onto a host.
//
// A Manager opens Sessions by engine identifier ("m17n:<language>:<method>").
// Sessions of the same EngineVariant share one m17n.Method held by a
// Registry. Each Session owns one m17n.Context; key symbols are fed through
// the context (the adapter) and the callbacks it emits are routed by the
// Dispatcher back to the owning Session, which updates its RenderState and
// calls the Host sinks.
//
// Nothing in this package is safe for concurrent use. Callers serialise
// every call, including configuration changes, onto one goroutine.
package engine
