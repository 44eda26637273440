package pathmap

import (
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
)

// IndexFile is the file name used for pages that own children.
const IndexFile = "index.md"

// DetectSpaceRoot returns the token of the synthetic node wrapping the
// space's top-level pages, or "" when there is none.
//
// A single root whose title is empty or equal to its token is the wrapper.
// Otherwise a non-root parent whose children include every root is.
func DetectSpaceRoot(tree *model.WikiTree) string {
	if tree.IsEmpty() || len(tree.RootTokens) == 0 {
		return ""
	}

	if len(tree.RootTokens) == 1 {
		token := tree.RootTokens[0]
		title := tree.Nodes[token].Title
		if title == "" || title == token {
			return token
		}
	}

	roots := make(map[string]bool, len(tree.RootTokens))
	for _, token := range tree.RootTokens {
		roots[token] = true
	}
	for _, parent := range tree.SortedParents() {
		if roots[parent] {
			continue
		}
		if containsAll(tree.ChildMap[parent], roots) {
			return parent
		}
	}
	return ""
}

func containsAll(children []string, set map[string]bool) bool {
	found := 0
	seen := make(map[string]bool, len(children))
	for _, child := range children {
		if set[child] && !seen[child] {
			seen[child] = true
			found++
		}
	}
	return found == len(set)
}

// parents derives the parent of every token. Child map edges win over
// ParentToken. Parents are visited in sorted order and the first edge
// seen for a child is kept.
func parents(tree *model.WikiTree) map[string]string {
	parentOf := make(map[string]string, len(tree.Nodes))
	for _, parent := range tree.SortedParents() {
		for _, child := range tree.ChildMap[parent] {
			if _, ok := parentOf[child]; !ok {
				parentOf[child] = parent
			}
		}
	}
	for _, token := range tree.SortedTokens() {
		node := tree.Nodes[token]
		if _, ok := parentOf[token]; !ok && node.ParentToken != "" {
			parentOf[token] = node.ParentToken
		}
	}
	return parentOf
}

// segment is the sanitized path segment of token.
func segment(tree *model.WikiTree, token string) string {
	if node, ok := tree.Nodes[token]; ok && node.Title != "" {
		return SanitizeFilename(node.Title)
	}
	return SanitizeFilename(token)
}

// Compute returns the root-first path segments of every node in the tree,
// leaving out skipRoot. Nodes whose path would be empty are omitted.
//
// The upward walk stops at the first token seen twice, so parent cycles
// produce finite paths.
func Compute(tree *model.WikiTree, skipRoot string) map[string][]string {
	if tree.IsEmpty() {
		return make(map[string][]string)
	}
	return compute(tree, skipRoot, parents(tree), func(token string) string {
		return segment(tree, token)
	})
}

func compute(tree *model.WikiTree, skipRoot string, parentOf map[string]string, name func(token string) string) map[string][]string {
	paths := make(map[string][]string)
	for token := range tree.Nodes {
		var segments []string
		visited := make(map[string]bool)
		current, ok := token, true
		for ok && !visited[current] {
			visited[current] = true
			if current != skipRoot {
				segments = append(segments, name(current))
			}
			current, ok = parentOf[current]
		}
		if len(segments) == 0 {
			continue
		}
		for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
			segments[i], segments[j] = segments[j], segments[i]
		}
		paths[token] = segments
	}
	return paths
}

// DirectoryTokens returns the tokens that own at least one child, either
// through the child map or through a node's ParentToken.
func DirectoryTokens(tree *model.WikiTree) map[string]bool {
	dirs := make(map[string]bool)
	if tree == nil {
		return dirs
	}
	for parent, children := range tree.ChildMap {
		if len(children) > 0 {
			dirs[parent] = true
		}
	}
	for _, node := range tree.Nodes {
		if node.ParentToken == "" {
			continue
		}
		if _, ok := tree.Nodes[node.ParentToken]; ok {
			dirs[node.ParentToken] = true
		}
	}
	return dirs
}

// Order returns every token breadth-first from the roots, followed by the
// nodes no root reaches, in sorted order. Each token appears once.
func Order(tree *model.WikiTree) []string {
	if tree == nil {
		return nil
	}
	order := make([]string, 0, len(tree.Nodes))
	seen := make(map[string]bool, len(tree.Nodes))

	queue := append([]string(nil), tree.RootTokens...)
	for len(queue) > 0 {
		token := queue[0]
		queue = queue[1:]
		if seen[token] {
			continue
		}
		seen[token] = true
		order = append(order, token)
		queue = append(queue, tree.ChildMap[token]...)
	}

	for _, token := range tree.SortedTokens() {
		if !seen[token] {
			seen[token] = true
			order = append(order, token)
		}
	}
	return order
}

// Layout is the complete filesystem mapping of a tree.
type Layout struct {
	// SpaceRoot is the elided wrapper token, or "".
	SpaceRoot string

	// Paths holds the segments of every mapped token.
	Paths map[string][]string

	// Dirs holds the tokens rendered as directories.
	Dirs map[string]bool

	// Order is the export order. It excludes SpaceRoot.
	Order []string
}

// NewLayout computes the layout of tree. Siblings whose names collide
// after sanitizing get _1, _2, ... suffixes in export order, so every node
// maps to its own file.
func NewLayout(tree *model.WikiTree) *Layout {
	root := DetectSpaceRoot(tree)
	all := Order(tree)
	order := make([]string, 0, len(all))
	for _, token := range all {
		if token != root {
			order = append(order, token)
		}
	}
	dirs := DirectoryTokens(tree)

	paths := make(map[string][]string)
	if !tree.IsEmpty() {
		parentOf := parents(tree)
		names := uniqueNames(tree, order, parentOf, root, dirs)
		paths = compute(tree, root, parentOf, func(token string) string {
			if name, ok := names[token]; ok {
				return name
			}
			return segment(tree, token)
		})
	}
	return &Layout{
		SpaceRoot: root,
		Paths:     paths,
		Dirs:      dirs,
		Order:     order,
	}
}

// uniqueNames assigns each token a segment that no earlier sibling of the
// same kind uses. Names compare case-insensitively. A directory reserves
// "index" among its leaf children.
func uniqueNames(tree *model.WikiTree, order []string, parentOf map[string]string, root string, dirs map[string]bool) map[string]string {
	type key struct {
		parent string
		name   string
		dir    bool
	}
	taken := make(map[key]bool)
	for token := range dirs {
		taken[key{parent: token, name: strings.TrimSuffix(IndexFile, ".md")}] = true
	}

	names := make(map[string]string, len(order))
	for _, token := range order {
		parent := parentOf[token]
		if parent == root {
			parent = ""
		}
		base := segment(tree, token)
		name := base
		for i := 1; taken[key{parent, strings.ToLower(name), dirs[token]}]; i++ {
			name = base + "_" + strconv.Itoa(i)
		}
		taken[key{parent, strings.ToLower(name), dirs[token]}] = true
		names[token] = name
	}
	return names
}

// File returns the slash-separated path of token's Markdown file relative
// to the export root. fallbackTitle names the file when the token has no
// mapped path.
func (l *Layout) File(token, fallbackTitle string) string {
	segments := l.Paths[token]
	if len(segments) == 0 {
		segments = []string{SanitizeFilename(fallbackTitle)}
	}
	if l.Dirs[token] {
		return path.Join(slices.Concat(segments, []string{IndexFile})...)
	}
	last := len(segments) - 1
	return path.Join(slices.Concat(segments[:last], []string{segments[last] + ".md"})...)
}
