package model

import (
	"slices"
	"sort"
)

// WikiNode is a single page in a wiki space as described by the tree API.
// Its identity is Token.
type WikiNode struct {
	// Token is the opaque page identifier used in /wiki/{token} URLs.
	Token string `json:"token"`

	// Title is the node title. The tree builder falls back to the token
	// when the API reports no title or name.
	Title string `json:"title"`

	// URL is the canonical page URL built from Token.
	URL string `json:"url"`

	// APIURL is the url field reported by the tree API, if any. It can
	// reference a page whose token differs from Token.
	APIURL string `json:"api_url,omitempty"`

	// HasChildren is the API's has_child flag. It may be true while the
	// children are still missing from the tree.
	HasChildren bool `json:"has_children"`

	// ParentToken is the API's parent_wiki_token, empty for roots.
	ParentToken string `json:"parent_token,omitempty"`

	// ObjToken and ObjType identify the underlying document.
	ObjToken string `json:"obj_token,omitempty"`
	ObjType  string `json:"obj_type,omitempty"`

	// Placeholder marks a node created for a token the API referenced
	// without describing it. Its Title is the token.
	Placeholder bool `json:"placeholder,omitempty"`
}

// WikiTree is the hierarchy of a wiki space.
//
// Every token referenced from ChildMap or as a ParentToken is expected to
// have an entry in Nodes once all partial responses are merged, but the
// structure may still contain cycles when the API data is malformed.
// Consumers must guard against cycles.
type WikiTree struct {
	// RootTokens lists top-level tokens in API order.
	RootTokens []string `json:"root_tokens"`

	// ChildMap maps a parent token to its ordered, duplicate-free children.
	ChildMap map[string][]string `json:"child_map"`

	// Nodes maps a token to its node.
	Nodes map[string]WikiNode `json:"nodes"`

	// SpaceName is the wiki space name when the API reports one.
	SpaceName string `json:"space_name,omitempty"`

	// Fallback is set when the tokens were recovered from a response
	// without a tree object. Such a tree has no hierarchy.
	Fallback bool `json:"fallback,omitempty"`
}

// NewWikiTree returns an empty tree with initialized maps.
func NewWikiTree() *WikiTree {
	return &WikiTree{
		RootTokens: make([]string, 0),
		ChildMap:   make(map[string][]string),
		Nodes:      make(map[string]WikiNode),
	}
}

// IsEmpty reports whether the tree contains no nodes.
func (t *WikiTree) IsEmpty() bool {
	return t == nil || len(t.Nodes) == 0
}

// Clone returns a deep copy of the tree.
func (t *WikiTree) Clone() *WikiTree {
	if t == nil {
		return NewWikiTree()
	}
	c := &WikiTree{
		RootTokens: slices.Clone(t.RootTokens),
		ChildMap:   make(map[string][]string, len(t.ChildMap)),
		Nodes:      make(map[string]WikiNode, len(t.Nodes)),
		SpaceName:  t.SpaceName,
		Fallback:   t.Fallback,
	}
	if c.RootTokens == nil {
		c.RootTokens = make([]string, 0)
	}
	for parent, children := range t.ChildMap {
		c.ChildMap[parent] = slices.Clone(children)
	}
	for token, node := range t.Nodes {
		c.Nodes[token] = node
	}
	return c
}

// AddChild appends child under parent unless it is already listed.
func (t *WikiTree) AddChild(parent, child string) {
	if t.ChildMap == nil {
		t.ChildMap = make(map[string][]string)
	}
	if slices.Contains(t.ChildMap[parent], child) {
		return
	}
	t.ChildMap[parent] = append(t.ChildMap[parent], child)
}

// SortedTokens returns all node tokens in lexical order.
// Map iteration order is random; callers that need a stable order use this.
func (t *WikiTree) SortedTokens() []string {
	tokens := make([]string, 0, len(t.Nodes))
	for token := range t.Nodes {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// SortedParents returns all ChildMap keys in lexical order.
func (t *WikiTree) SortedParents() []string {
	parents := make([]string, 0, len(t.ChildMap))
	for parent := range t.ChildMap {
		parents = append(parents, parent)
	}
	sort.Strings(parents)
	return parents
}
