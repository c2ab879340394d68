// Package pipeline implements the ordered render-transform chain that plugins
// contribute to.
//
// Contributions are kept sorted by priority (lower runs earlier) and then by
// registration order. Transform and Wrap callbacks form a chain of
// responsibility: each receives the value and a next continuation bound to
// the rest of the chain, and may pass the value through, rewrite it, or
// short-circuit by returning without calling next. Inline callbacks are not
// chained; the first non-nil element wins.
//
// A callback that returns an error, panics, or returns nil is skipped for
// that call only and reported as PLUGIN_MIDDLEWARE_ERROR. The chain resumes
// with the value as it was before the failing step. When the failing step had
// already called next, the result it obtained is reused so that no
// contribution runs twice in one fold.
package pipeline
