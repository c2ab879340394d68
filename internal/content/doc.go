// Package content defines the document snapshot shared between the renderer
// and the plugin core: the unified content tree, reading position, selection,
// and the renderer-agnostic element tree produced by the render pass.
//
// Documents arrive already parsed. A document with chapters is rendered from
// its content tree; a document without chapters is handed to a native
// paginated renderer and only exposes metadata and page counts.
//
// Snapshot is the default Provider. The renderer refreshes it as the reader
// moves through the document; the plugin core only reads from it.
package content
