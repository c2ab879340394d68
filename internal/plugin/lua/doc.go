// Package lua runs reader plugins written in Lua.
//
// A script plugin is a Lua file that defines a global setup function and,
// optionally, on_document_ready and destroy. Each receives the folio module,
// which is also available through require("folio"):
//
//	function setup(folio)
//	  folio.on("unit:click", function(e)
//	    folio.log("clicked " .. e.payload.unitID)
//	  end)
//
//	  if folio.capabilities().middleware then
//	    folio.use_middleware{
//	      name = "smallcaps",
//	      priority = 50,
//	      wrap = function(el, node, next)
//	        local out = next(el)
//	        out.attrs.class = "smallcaps"
//	        return out
//	      end,
//	    }
//	  end
//	end
//
// NewDescriptor turns a manifest into a plugin.Descriptor, so script plugins
// go through the same registry lifecycle as Go plugins.
//
// # Sandbox
//
// Only the base, string, table, math and coroutine libraries are opened.
// dofile, loadfile, load and loadstring are removed, print goes to the
// plugin logger, and require resolves only the built-in modules and folio.
//
// # Bridge
//
// The Bridge converts between Go and Lua values. Content nodes become
// {id, type, value, attrs, children} tables and rendered elements
// {tag, unit, attrs, text, children} tables.
package lua
