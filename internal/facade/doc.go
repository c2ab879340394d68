// Package facade provides the single interface plugins use to reach the
// reader.
//
// New selects one of two implementations from the active track. The tree
// variant reports every capability and forwards middleware to the transform
// pipeline. The native variant reports text selection only and turns
// UseMiddleware into an inert call that logs one capability warning per
// contribution name. Plugins consult Capabilities rather than Track.
//
// Everything a facade registers (subscriptions, contributions, UI
// associations, stores) is tagged with the owning plugin and dropped by
// Release, whether or not the plugin kept its own unsubscribe handles.
package facade
