package events

import (
	"fmt"

	"github.com/dshills/folio/internal/event/topic"
)

// Plugin event topics.
const (
	// TopicPluginRegistered is published when a descriptor is accepted.
	TopicPluginRegistered topic.Topic = "plugin:registered"

	// TopicPluginReady is published when a plugin's setup completes.
	TopicPluginReady topic.Topic = "plugin:ready"

	// TopicPluginFailed is published when a plugin enters the failed state.
	TopicPluginFailed topic.Topic = "plugin:failed"

	// TopicPluginDestroyed is published after a plugin is torn down.
	TopicPluginDestroyed topic.Topic = "plugin:destroyed"

	// TopicPluginError is published for every failure caught at a plugin
	// callback boundary.
	TopicPluginError topic.Topic = "plugin:error"
)

// ErrorCode tags an error reported on TopicPluginError.
type ErrorCode string

// Collaborator-originated codes. The core surfaces these but never raises them.
const (
	CodeDocumentParseFailed       ErrorCode = "DOCUMENT_PARSE_FAILED"
	CodeDocumentFormatUnsupported ErrorCode = "DOCUMENT_FORMAT_UNSUPPORTED"
	CodeDocumentCorrupted         ErrorCode = "DOCUMENT_CORRUPTED"
)

// Core-originated codes.
const (
	CodeRenderFailed            ErrorCode = "RENDER_FAILED"
	CodePluginSetupFailed       ErrorCode = "PLUGIN_SETUP_FAILED"
	CodePluginMiddlewareError   ErrorCode = "PLUGIN_MIDDLEWARE_ERROR"
	CodePluginDependencyMissing ErrorCode = "PLUGIN_DEPENDENCY_MISSING"

	// CodePluginHandlerFailed tags an event handler that returned an error
	// or panicked.
	CodePluginHandlerFailed ErrorCode = "PLUGIN_HANDLER_FAILED"

	// CodePluginHookFailed tags a failing document-ready hook, destroy hook
	// or cleanup handle. The plugin's state is not changed by it.
	CodePluginHookFailed ErrorCode = "PLUGIN_HOOK_FAILED"
)

// PluginError is the payload of TopicPluginError.
type PluginError struct {
	Code ErrorCode

	// Plugin is the owning plugin, empty when the failing callback has no owner.
	Plugin string

	// Contribution names the middleware contribution for CodePluginMiddlewareError.
	Contribution string

	// Topic is the event being dispatched for CodePluginHandlerFailed.
	Topic topic.Topic

	Err error
}

// Error implements error so a PluginError can be returned or joined directly.
func (e PluginError) Error() string {
	switch {
	case e.Contribution != "":
		return fmt.Sprintf("%s: plugin %q contribution %q: %v", e.Code, e.Plugin, e.Contribution, e.Err)
	case e.Plugin != "":
		return fmt.Sprintf("%s: plugin %q: %v", e.Code, e.Plugin, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e PluginError) Unwrap() error {
	return e.Err
}

// PluginLifecycle is the payload of the plugin lifecycle topics.
type PluginLifecycle struct {
	Name         string
	State        string
	Dependencies []string
}
