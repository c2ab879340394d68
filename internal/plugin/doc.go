// Package plugin manages the lifecycle of reader plugins.
//
// A plugin is declared by a Descriptor: a unique name, the names of the
// plugins it depends on, a setup function and optional document-ready and
// destroy hooks. The Registry validates descriptors, orders them so every
// plugin initializes after its dependencies, and hands each one a facade
// scoped to its name.
//
// # Lifecycle
//
//	registered -> initializing -> ready -> destroying -> destroyed
//	                  |
//	                  +-> failed
//
// A plugin whose setup returns an error or panics moves to failed and is
// reported on the plugin:error topic with code PLUGIN_SETUP_FAILED. Its
// siblings keep initializing. Failed and destroyed names may be registered
// again.
//
// # Teardown
//
// Destroy runs the plugin's destroy hook, then the cleanup returned by its
// setup, then releases its facade. Releasing the facade drops every event
// subscription, transform contribution, UI injection and store the plugin
// created, whether or not the plugin unsubscribed them itself. Plugins that
// depend on the one being destroyed are torn down first.
//
// # Script plugins
//
// The manifest and lua subpackages load plugins written in Lua from disk and
// turn them into Descriptors. The watcher subpackage reloads them when their
// files change.
package plugin
