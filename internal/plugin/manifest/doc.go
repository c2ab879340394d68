// Package manifest reads script plugin manifests and discovers plugin
// directories on disk.
//
// A plugin directory holds a plugin.yaml (or plugin.json) manifest and a Lua
// entry file:
//
//	plugins/
//	└── footnotes/
//	    ├── plugin.yaml
//	    └── init.lua
//
// A directory with no manifest but an init.lua, or a bare footnotes.lua file,
// is a plugin named after the directory or file.
package manifest
