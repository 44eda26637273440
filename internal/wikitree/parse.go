package wikitree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

type apiResponse struct {
	Code *int64          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type apiData struct {
	Tree  json.RawMessage `json:"tree"`
	Space json.RawMessage `json:"space"`
}

type apiTree struct {
	RootList []json.RawMessage            `json:"root_list"`
	ChildMap map[string][]json.RawMessage `json:"child_map"`
	Nodes    map[string]json.RawMessage   `json:"nodes"`
}

// Parse decodes a tree API response body. Node URLs are built from scheme
// and host.
//
// A non-zero code yields an *APIError. A body that is valid JSON but lacks
// a usable data.tree object is handled by the fallback parser, which turns
// every token it finds into a root node and marks the tree as Fallback.
// Tokens the tree references without a node entry get placeholder nodes.
func Parse(body []byte, scheme, host string) (*model.WikiTree, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return parseFallback(raw, scheme, host), nil
	}
	if resp.Code != nil && *resp.Code != 0 {
		return nil, &APIError{Code: *resp.Code, Msg: resp.Msg}
	}

	var data apiData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return parseFallback(raw, scheme, host), nil
	}
	var tree apiTree
	if isEmptyJSON(data.Tree) || json.Unmarshal(data.Tree, &tree) != nil {
		return parseFallback(raw, scheme, host), nil
	}

	result := model.NewWikiTree()
	result.SpaceName = spaceName(data.Space)

	for _, rawToken := range tree.RootList {
		if token, ok := jsonString(rawToken); ok && token != "" {
			result.RootTokens = append(result.RootTokens, token)
		}
	}

	for parent, children := range tree.ChildMap {
		if _, ok := result.ChildMap[parent]; !ok {
			result.ChildMap[parent] = make([]string, 0, len(children))
		}
		for _, rawChild := range children {
			if child, ok := jsonString(rawChild); ok && child != "" {
				result.AddChild(parent, child)
			}
		}
	}

	for token, rawNode := range tree.Nodes {
		fields, ok := jsonObject(rawNode)
		if !ok || token == "" {
			continue
		}
		title := firstNonEmpty(stringField(fields, "title"), stringField(fields, "name"), token)
		result.Nodes[token] = model.WikiNode{
			Token:       token,
			Title:       title,
			URL:         wikiurl.PageURL(scheme, host, token),
			APIURL:      stringField(fields, "url"),
			HasChildren: boolField(fields, "has_child"),
			ParentToken: stringField(fields, "parent_wiki_token"),
			ObjToken:    stringField(fields, "obj_token"),
			ObjType:     stringField(fields, "obj_type"),
		}
	}

	// The API often lists deeper levels only through parent_wiki_token.
	for _, token := range result.SortedTokens() {
		if parent := result.Nodes[token].ParentToken; parent != "" {
			result.AddChild(parent, token)
		}
	}
	addPlaceholders(result, scheme, host)
	return result, nil
}

// addPlaceholders creates a node for every token referenced as a root,
// parent, child or ParentToken that the response did not describe.
func addPlaceholders(tree *model.WikiTree, scheme, host string) {
	var referenced []string
	referenced = append(referenced, tree.RootTokens...)
	for _, parent := range tree.SortedParents() {
		referenced = append(referenced, parent)
		referenced = append(referenced, tree.ChildMap[parent]...)
	}
	for _, token := range tree.SortedTokens() {
		referenced = append(referenced, tree.Nodes[token].ParentToken)
	}
	for _, token := range referenced {
		if _, ok := tree.Nodes[token]; ok || token == "" {
			continue
		}
		tree.Nodes[token] = model.WikiNode{
			Token:       token,
			Title:       token,
			URL:         wikiurl.PageURL(scheme, host, token),
			HasChildren: len(tree.ChildMap[token]) > 0,
			Placeholder: true,
		}
	}
}

func spaceName(raw json.RawMessage) string {
	fields, ok := jsonObject(raw)
	if !ok {
		return ""
	}
	return firstNonEmpty(stringField(fields, "name"), stringField(fields, "space_name"))
}

// isEmptyJSON reports whether raw is absent, null, or an empty object.
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	fields, ok := jsonObject(trimmed)
	return ok && len(fields) == 0
}

func jsonObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// stringField returns a string field, rendering numbers as their literal
// text. Other types yield "".
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	if s, ok := jsonString(raw); ok {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func boolField(fields map[string]json.RawMessage, key string) bool {
	var b bool
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &b) == nil {
		return b
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// tokenFromURL returns the token after the last /wiki/ in rawURL, without
// query or fragment.
func tokenFromURL(rawURL string) string {
	idx := strings.LastIndex(rawURL, "/wiki/")
	if idx < 0 {
		return ""
	}
	token := rawURL[idx+len("/wiki/"):]
	if i := strings.IndexAny(token, "?#"); i >= 0 {
		token = token[:i]
	}
	return token
}
