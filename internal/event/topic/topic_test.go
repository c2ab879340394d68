package topic

import "testing"

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"document:loaded", "document:loaded", true},
		{"document:loaded", "document:*", true},
		{"document:loaded", "*:loaded", true},
		{"native:page:rendered", "native:*", false},
		{"native:page:rendered", "native:**", true},
		{"native", "native:**", true},
		{"plugin:error", "**", true},
		{"plugin:error", "plugin:error:extra", false},
		{"plugin:error", "document:*", false},
	}
	for _, tt := range tests {
		if got := tt.topic.Matches(tt.pattern); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
		}
	}
}

func TestTopicValid(t *testing.T) {
	tests := []struct {
		topic Topic
		want  bool
	}{
		{"document:loaded", true},
		{"resize", true},
		{"", false},
		{":loaded", false},
		{"document::loaded", false},
		{"document:", false},
	}
	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.want {
			t.Errorf("%q.IsValid() = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestTopicHelpers(t *testing.T) {
	tp := Join("native", "page", "changed")
	if tp != "native:page:changed" {
		t.Errorf("Join = %q", tp)
	}
	if tp.Namespace() != "native" {
		t.Errorf("Namespace = %q", tp.Namespace())
	}
	if Topic("plugin").Child("ready") != "plugin:ready" {
		t.Error("Child should append a segment")
	}
	if !Topic("plugin:*").IsWildcard() || Topic("plugin:ready").IsWildcard() {
		t.Error("IsWildcard mismatch")
	}
}

func TestTrieMatch(t *testing.T) {
	trie := NewTrie()
	for _, p := range []Topic{"document:loaded", "document:*", "**", "plugin:*", "native:**"} {
		trie.Insert(p)
	}

	tests := []struct {
		topic Topic
		want  []Topic
	}{
		{"document:loaded", []Topic{"document:loaded", "document:*", "**"}},
		{"plugin:error", []Topic{"plugin:*", "**"}},
		{"native:page:rendered", []Topic{"native:**", "**"}},
		{"resize", []Topic{"**"}},
	}
	for _, tt := range tests {
		got := trie.Match(tt.topic)
		if len(got) != len(tt.want) {
			t.Errorf("Match(%q) = %v, want %v", tt.topic, got, tt.want)
			continue
		}
		for _, w := range tt.want {
			if _, ok := got[w]; !ok {
				t.Errorf("Match(%q) missing %q", tt.topic, w)
			}
		}
	}
}

func TestTrieRefCounting(t *testing.T) {
	trie := NewTrie()
	if !trie.Insert("text:select") {
		t.Error("first insert should report a new pattern")
	}
	if trie.Insert("text:select") {
		t.Error("second insert should only add a reference")
	}
	if trie.Delete("text:select") {
		t.Error("pattern still referenced once, should remain")
	}
	if !trie.Contains("text:select") {
		t.Error("pattern should still be stored")
	}
	if !trie.Delete("text:select") {
		t.Error("last delete should remove the pattern")
	}
	if trie.Contains("text:select") || trie.Size() != 0 {
		t.Error("trie should be empty after removing the last reference")
	}
	if len(trie.root.children) != 0 {
		t.Error("empty nodes should be pruned")
	}
}

func TestTrieZeroValue(t *testing.T) {
	var trie Trie
	if trie.Contains("x") || trie.Delete("x") || trie.Match("x") != nil || trie.Size() != 0 {
		t.Error("zero-value trie should behave as empty")
	}
	if !trie.Insert("x:y") || !trie.Contains("x:y") {
		t.Error("zero-value trie should accept inserts")
	}
}
