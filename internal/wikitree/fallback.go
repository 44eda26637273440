package wikitree

import (
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// Key candidates for the fallback parser, in priority order.
var (
	tokenKeys  = []string{"wiki_token", "obj_token", "token"}
	childKeys  = []string{"children", "nodes", "items"}
	nestedKeys = []string{"tree", "data", "nodes", "wiki_nodes", "space_info"}
)

// parseFallback walks a decoded JSON value of unknown shape and returns a
// tree whose roots are every token found, in discovery order. The tree is
// marked as Fallback.
func parseFallback(value any, scheme, host string) *model.WikiTree {
	tree := model.NewWikiTree()
	tree.Fallback = true
	seen := make(map[string]bool)
	walkFallback(value, func(token string) {
		if seen[token] {
			return
		}
		seen[token] = true
		tree.RootTokens = append(tree.RootTokens, token)
		tree.Nodes[token] = model.WikiNode{
			Token: token,
			Title: token,
			URL:   wikiurl.PageURL(scheme, host, token),
		}
	})
	return tree
}

func walkFallback(value any, visit func(token string)) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range tokenKeys {
			if token, ok := v[key].(string); ok && token != "" {
				visit(token)
				break
			}
		}
		for _, key := range childKeys {
			if children, ok := v[key].([]any); ok && len(children) > 0 {
				for _, child := range children {
					walkFallback(child, visit)
				}
				break
			}
		}
		for _, key := range nestedKeys {
			if nested, ok := v[key]; ok {
				walkFallback(nested, visit)
			}
		}
	case []any:
		for _, item := range v {
			walkFallback(item, visit)
		}
	}
}
