package events

import (
	"errors"
	"strings"
	"testing"
)

func TestPluginErrorMessage(t *testing.T) {
	cause := errors.New("nil map")
	tests := []struct {
		name string
		err  PluginError
		want string
	}{
		{"contribution", PluginError{Code: CodePluginMiddlewareError, Plugin: "notes", Contribution: "hl", Err: cause},
			`PLUGIN_MIDDLEWARE_ERROR: plugin "notes" contribution "hl": nil map`},
		{"plugin", PluginError{Code: CodePluginSetupFailed, Plugin: "notes", Err: cause},
			`PLUGIN_SETUP_FAILED: plugin "notes": nil map`},
		{"bare", PluginError{Code: CodeRenderFailed, Err: cause},
			`RENDER_FAILED: nil map`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("PluginError should unwrap to its cause")
			}
		})
	}
}

func TestTopicsAreValid(t *testing.T) {
	for _, tp := range []string{
		string(TopicDocumentLoaded), string(TopicTextSelect), string(TopicNativePageRendered),
		string(TopicPluginError), string(TopicUIInjected), string(TopicVisibleUnitsChange),
	} {
		if strings.Contains(tp, ".") || !strings.Contains(tp, ":") {
			t.Errorf("topic %q should use colon segments", tp)
		}
	}
}
