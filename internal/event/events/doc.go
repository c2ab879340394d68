// Package events defines the topic names and payloads exchanged on the
// reader's event bus.
//
// Topics are grouped by source:
//
//   - Document events: loaded, unloaded
//   - Navigation events: location and chapter changes, scroll, visible units
//   - Interaction events: text selection, unit click and hover
//   - View events: resize, theme change
//   - Native track events: page changes and page rendering
//   - Plugin events: lifecycle transitions and errors
//   - UI events: slot registration and injections
//
// # Usage
//
//	bus.Publish(ctx, events.TopicTextSelect, events.TextSelect{
//	    Selection: content.Selection{Text: "hello", StartUnitID: "p-3"},
//	})
//
// # Topic Naming Convention
//
// Topics use colon-separated segments, <area>:<action>, for example
// document:loaded, unit:click or native:page:rendered.
package events
