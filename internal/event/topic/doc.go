// Package topic provides hierarchical topic names and wildcard pattern
// matching for the event bus.
//
// Topics use colon-separated segments:
//
//	document:loaded
//	text:select
//	plugin:error
//	native:page:rendered
//
// Subscription patterns may use two wildcards:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// For example "plugin:*" matches plugin:ready and plugin:error but not
// native:page:rendered, while "**" matches everything.
package topic
