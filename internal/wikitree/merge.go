package wikitree

import (
	"slices"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// Merge returns the union of base and partial without modifying either.
//
// Child lists are unioned with base entries first. Nodes from partial are
// added when base lacks them or only holds a placeholder. Placeholders
// for tokens the merged tree does not reference are dropped. Roots and
// space name come from base unless it has none.
func Merge(base, partial *model.WikiTree) *model.WikiTree {
	result := base.Clone()
	if partial == nil {
		return result
	}

	for _, parent := range partial.SortedParents() {
		if _, ok := result.ChildMap[parent]; !ok {
			result.ChildMap[parent] = make([]string, 0, len(partial.ChildMap[parent]))
		}
		for _, child := range partial.ChildMap[parent] {
			result.AddChild(parent, child)
		}
	}
	if len(result.RootTokens) == 0 {
		result.RootTokens = slices.Clone(partial.RootTokens)
		if result.RootTokens == nil {
			result.RootTokens = make([]string, 0)
		}
	}
	refs := references(result, partial)
	for token, node := range partial.Nodes {
		existing, ok := result.Nodes[token]
		switch {
		case node.Placeholder && !refs[token]:
			// roots of a partial response that base does not adopt
		case !ok, existing.Placeholder && !node.Placeholder:
			result.Nodes[token] = node
		}
	}
	if result.SpaceName == "" {
		result.SpaceName = partial.SpaceName
	}
	return result
}

// URLs returns the page URLs referenced anywhere in tree: roots first,
// then each parent with its children, then nodes and the tokens of their
// API urls. Each URL appears once.
func URLs(tree *model.WikiTree, scheme, host string) []string {
	if tree == nil {
		return nil
	}
	var urls []string
	seen := make(map[string]bool)
	add := func(token string) {
		if token == "" || seen[token] {
			return
		}
		seen[token] = true
		urls = append(urls, wikiurl.PageURL(scheme, host, token))
	}

	for _, token := range tree.RootTokens {
		add(token)
	}
	for _, parent := range tree.SortedParents() {
		add(parent)
		for _, child := range tree.ChildMap[parent] {
			add(child)
		}
	}
	for _, token := range tree.SortedTokens() {
		add(token)
		if apiURL := tree.Nodes[token].APIURL; apiURL != "" {
			add(tokenFromURL(apiURL))
		}
	}
	return urls
}

// references returns the tokens the merged tree points at: roots, child
// map entries and the ParentToken of any node in either tree.
func references(merged, partial *model.WikiTree) map[string]bool {
	refs := make(map[string]bool)
	for _, token := range merged.RootTokens {
		refs[token] = true
	}
	for parent, children := range merged.ChildMap {
		refs[parent] = true
		for _, child := range children {
			refs[child] = true
		}
	}
	for _, tree := range []*model.WikiTree{merged, partial} {
		for _, node := range tree.Nodes {
			if node.ParentToken != "" {
				refs[node.ParentToken] = true
			}
		}
	}
	return refs
}
