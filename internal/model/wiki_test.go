package model

import (
	"slices"
	"testing"
)

func sampleTree() *WikiTree {
	tree := NewWikiTree()
	tree.RootTokens = []string{"r"}
	tree.Nodes["r"] = WikiNode{Token: "r", Title: "Root", HasChildren: true}
	tree.Nodes["a"] = WikiNode{Token: "a", Title: "A", ParentToken: "r"}
	tree.AddChild("r", "a")
	return tree
}

func TestWikiTreeIsEmpty(t *testing.T) {
	t.Parallel()

	var nilTree *WikiTree
	if !nilTree.IsEmpty() {
		t.Error("nil tree should be empty")
	}
	if !NewWikiTree().IsEmpty() {
		t.Error("new tree should be empty")
	}
	if sampleTree().IsEmpty() {
		t.Error("sample tree should not be empty")
	}
}

func TestWikiTreeAddChild(t *testing.T) {
	t.Parallel()

	tree := NewWikiTree()
	tree.AddChild("p", "a")
	tree.AddChild("p", "b")
	tree.AddChild("p", "a")

	if got := tree.ChildMap["p"]; !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("got %v, expected [a b]", got)
	}

	var zero WikiTree
	zero.AddChild("p", "c")
	if got := zero.ChildMap["p"]; !slices.Equal(got, []string{"c"}) {
		t.Errorf("got %v on zero-value tree", got)
	}
}

func TestWikiTreeClone(t *testing.T) {
	t.Parallel()

	orig := sampleTree()
	clone := orig.Clone()

	clone.AddChild("r", "b")
	clone.RootTokens = append(clone.RootTokens, "z")
	clone.Nodes["b"] = WikiNode{Token: "b"}

	if len(orig.ChildMap["r"]) != 1 {
		t.Errorf("original child list mutated: %v", orig.ChildMap["r"])
	}
	if len(orig.RootTokens) != 1 {
		t.Errorf("original roots mutated: %v", orig.RootTokens)
	}
	if _, ok := orig.Nodes["b"]; ok {
		t.Error("original nodes mutated")
	}

	var nilTree *WikiTree
	if c := nilTree.Clone(); c == nil || c.Nodes == nil {
		t.Error("clone of nil tree should be an initialized empty tree")
	}
}

func TestWikiTreeSortedTokens(t *testing.T) {
	t.Parallel()

	tree := sampleTree()
	tree.Nodes["0"] = WikiNode{Token: "0"}

	if got := tree.SortedTokens(); !slices.Equal(got, []string{"0", "a", "r"}) {
		t.Errorf("got %v", got)
	}
	if got := tree.SortedParents(); !slices.Equal(got, []string{"r"}) {
		t.Errorf("got %v", got)
	}
}
