// Package reader wires the plugin core to one loaded document.
//
// A Session is created per document load. Open picks the rendering track
// (tree when the document carries a content tree, native otherwise), builds
// the event bus, transform pipeline, UI registry and plugin registry, and
// publishes document:loaded. Close publishes document:unloaded and destroys
// every plugin in reverse activation order.
//
//	s, err := reader.Open(ctx, snapshot, reader.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	s.Register(ctx, descriptors...)
//	s.Activate(ctx)
//	el, _ := s.RenderUnit(ctx, node)
//
// Reload and Remove support hot reloading of script plugins: the plugin and
// its dependents are destroyed, then registered again from their latest
// descriptors.
package reader
