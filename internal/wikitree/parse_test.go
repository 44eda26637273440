package wikitree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "code": 0,
  "msg": "success",
  "data": {
    "space": {"name": "Engineering Handbook"},
    "tree": {
      "root_list": ["root", 42],
      "child_map": {"root": ["a", "b", "a"]},
      "nodes": {
        "root": {"title": "", "name": "", "has_child": true},
        "a": {"title": "Alpha", "has_child": true, "parent_wiki_token": "root", "obj_token": "doxA", "obj_type": 22},
        "b": {"name": "Beta by name", "parent_wiki_token": "root", "url": "https://x.feishu.cn/wiki/b?from=tree"},
        "c": {"title": "Gamma", "parent_wiki_token": "a"},
        "bad": "not an object"
      }
    }
  }
}`

func TestParse(t *testing.T) {
	t.Parallel()

	tree, err := Parse([]byte(sampleResponse), "https", "x.feishu.cn")
	require.NoError(t, err)

	assert.Equal(t, "Engineering Handbook", tree.SpaceName)
	assert.Equal(t, []string{"root"}, tree.RootTokens, "non-string roots are skipped")
	assert.Equal(t, []string{"a", "b"}, tree.ChildMap["root"], "child lists are deduplicated")
	assert.Equal(t, []string{"c"}, tree.ChildMap["a"], "parent_wiki_token backfills missing edges")

	require.Len(t, tree.Nodes, 4)
	assert.Equal(t, "root", tree.Nodes["root"].Title, "title falls back to token")
	assert.Equal(t, "Alpha", tree.Nodes["a"].Title)
	assert.Equal(t, "Beta by name", tree.Nodes["b"].Title, "title falls back to name")
	assert.Equal(t, "https://x.feishu.cn/wiki/a", tree.Nodes["a"].URL)
	assert.Equal(t, "22", tree.Nodes["a"].ObjType)
	assert.Equal(t, "doxA", tree.Nodes["a"].ObjToken)
	assert.True(t, tree.Nodes["a"].HasChildren)
	assert.Equal(t, "root", tree.Nodes["b"].ParentToken)
	assert.Equal(t, "https://x.feishu.cn/wiki/b?from=tree", tree.Nodes["b"].APIURL)
}

func TestParse_SpaceNameFallback(t *testing.T) {
	t.Parallel()

	body := `{"code":0,"data":{"space":{"space_name":"Legacy"},"tree":{"root_list":["r"],"nodes":{"r":{"title":"R"}}}}}`
	tree, err := Parse([]byte(body), "https", "h")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", tree.SpaceName)
}

func TestParse_APIError(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"code":4001,"msg":"login required"}`), "https", "h")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int64(4001), apiErr.Code)
	assert.Equal(t, "login required", apiErr.Msg)
	assert.Contains(t, apiErr.Error(), "4001")
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"code":0,`), "https", "h")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParse_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "nested children",
			body: `{"code":0,"data":{"wiki_nodes":[{"wiki_token":"w1","children":[{"obj_token":"o2"},{"token":"t3","items":[{"wiki_token":"w4"}]}]}]}}`,
			want: []string{"w1", "o2", "t3", "w4"},
		},
		{
			name: "empty tree object",
			body: `{"code":0,"data":{"tree":{},"nodes":[{"token":"n1"},{"token":"n1"}]}}`,
			want: []string{"n1"},
		},
		{
			name: "missing code",
			body: `{"data":{"space_info":{"wiki_token":"s1"}}}`,
			want: []string{"s1"},
		},
		{
			name: "top level array",
			body: `[{"wiki_token":"a"},{"wiki_token":"b"}]`,
			want: []string{"a", "b"},
		},
		{
			name: "nothing found",
			body: `{"code":0,"data":{"foo":"bar"}}`,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, err := Parse([]byte(tt.body), "https", "h")
			require.NoError(t, err)
			assert.True(t, tree.Fallback)
			assert.Equal(t, tt.want, tree.RootTokens)
			assert.Len(t, tree.Nodes, len(tt.want))
			for _, token := range tt.want {
				assert.Equal(t, "https://h/wiki/"+token, tree.Nodes[token].URL)
			}
		})
	}
}

func TestParse_Placeholders(t *testing.T) {
	t.Parallel()

	body := `{"code":0,"data":{"tree":{
		"root_list":["root","lost"],
		"child_map":{"root":["a","b"]},
		"nodes":{
			"root":{"title":"Root","has_child":true},
			"a":{"title":"A","parent_wiki_token":"root"},
			"c":{"title":"C","parent_wiki_token":"gone"}
		}}}}`
	tree, err := Parse([]byte(body), "https", "h")
	require.NoError(t, err)
	assert.False(t, tree.Fallback)

	for _, token := range []string{"b", "lost", "gone"} {
		require.Contains(t, tree.Nodes, token)
		node := tree.Nodes[token]
		assert.True(t, node.Placeholder, token)
		assert.Equal(t, token, node.Title)
		assert.Equal(t, "https://h/wiki/"+token, node.URL)
	}
	assert.True(t, tree.Nodes["gone"].HasChildren, "gone owns c through parent_wiki_token")
	assert.False(t, tree.Nodes["a"].Placeholder)
	assert.Len(t, tree.Nodes, 6)
}

func TestTokenFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", tokenFromURL("https://h/wiki/abc?x=1#y"))
	assert.Equal(t, "def", tokenFromURL("https://h/wiki/x/wiki/def"))
	assert.Equal(t, "", tokenFromURL("https://h/docs/abc"))
}
