package topic

// Trie stores subscription patterns and finds every pattern matching a
// concrete topic in O(k) for k segments, plus the wildcard branches.
//
// Trie is not safe for concurrent use; the event bus serializes access.
type Trie struct {
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	// refs counts how many subscriptions use the pattern ending here.
	refs    int
	pattern Topic
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && n.refs == 0
}

// NewTrie creates an empty pattern trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Insert adds a reference to pattern. It returns true when the pattern was
// not stored before.
func (t *Trie) Insert(pattern Topic) bool {
	if pattern == "" {
		return false
	}
	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for _, seg := range pattern.Segments() {
		child := node.children[seg]
		if child == nil {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	node.refs++
	node.pattern = pattern
	return node.refs == 1
}

// Delete drops one reference to pattern and prunes empty nodes once the last
// reference is gone. It returns true if the pattern is no longer stored.
func (t *Trie) Delete(pattern Topic) bool {
	if pattern == "" || t.root == nil {
		return false
	}

	type step struct {
		node *trieNode
		key  string
	}
	segments := pattern.Segments()
	path := make([]step, 0, len(segments)+1)
	path = append(path, step{node: t.root})

	node := t.root
	for _, seg := range segments {
		child := node.children[seg]
		if child == nil {
			return false
		}
		path = append(path, step{node: child, key: seg})
		node = child
	}
	if node.refs == 0 {
		return false
	}
	node.refs--
	if node.refs > 0 {
		return false
	}

	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}
	return true
}

// Contains reports whether the exact pattern is stored.
func (t *Trie) Contains(pattern Topic) bool {
	if pattern == "" || t.root == nil {
		return false
	}
	node := t.root
	for _, seg := range pattern.Segments() {
		node = node.children[seg]
		if node == nil {
			return false
		}
	}
	return node.refs > 0
}

type visitKey struct {
	node  *trieNode
	depth int
}

type matchState struct {
	matches map[Topic]struct{}
	visited map[visitKey]struct{}
}

// Match returns the set of stored patterns matching the concrete topic.
func (t *Trie) Match(eventTopic Topic) map[Topic]struct{} {
	if eventTopic == "" || t.root == nil {
		return nil
	}
	state := &matchState{
		matches: make(map[Topic]struct{}),
		visited: make(map[visitKey]struct{}),
	}
	t.match(t.root, eventTopic.Segments(), 0, state)
	return state.matches
}

func (t *Trie) match(node *trieNode, segments []string, depth int, state *matchState) {
	key := visitKey{node: node, depth: depth}
	if _, seen := state.visited[key]; seen {
		return
	}
	state.visited[key] = struct{}{}

	if depth == len(segments) {
		if node.refs > 0 {
			state.matches[node.pattern] = struct{}{}
		}
		// ** matches zero trailing segments
		if child := node.children[WildcardMulti]; child != nil {
			t.match(child, segments, depth, state)
		}
		return
	}

	if child := node.children[segments[depth]]; child != nil {
		t.match(child, segments, depth+1, state)
	}
	if child := node.children[WildcardSingle]; child != nil {
		t.match(child, segments, depth+1, state)
	}
	if child := node.children[WildcardMulti]; child != nil {
		for i := depth; i <= len(segments); i++ {
			t.match(child, segments, i, state)
		}
	}
}

// Size returns the number of distinct stored patterns.
func (t *Trie) Size() int {
	return countPatterns(t.root)
}

func countPatterns(n *trieNode) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.refs > 0 {
		count++
	}
	for _, child := range n.children {
		count += countPatterns(child)
	}
	return count
}
