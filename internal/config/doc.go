// Package config loads folio settings.
//
// Settings are resolved in layers, each overriding the one below:
//
//	┌─────────────────────────────┐
//	│  4. Command line flags      │  ← applied by the caller
//	├─────────────────────────────┤
//	│  3. Environment (FOLIO_*)   │
//	├─────────────────────────────┤
//	│  2. TOML file               │  ← ~/.config/folio/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │
//	└─────────────────────────────┘
//
// A missing file is not an error. Unknown keys in a file are rejected so
// typos surface early.
//
// Example file:
//
//	[log]
//	level = "debug"
//
//	[reader]
//	track = "auto"
//	plugin_dirs = ["~/.config/folio/plugins"]
//	watch = true
//	watch_delay = "200ms"
//
//	[pipeline]
//	default_priority = 100
//
//	[metrics]
//	addr = ":9464"
package config
