package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/wikiscrape/internal/wikitree"
)

// fakeWiki serves pages under /wiki/{token} and, when tree is set, the
// tree API.
type fakeWiki struct {
	pages map[string]string
	tree  string

	mu      sync.Mutex
	cookies []string
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.cookies = append(f.cookies, r.Header.Get("Cookie"))
	f.mu.Unlock()

	if r.URL.Path == wikitree.APIPath && f.tree != "" {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.tree)
		return
	}
	token, ok := strings.CutPrefix(r.URL.Path, "/wiki/")
	body, found := f.pages[token]
	if !ok || !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (f *fakeWiki) sawCookie(want string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cookies {
		if strings.Contains(c, want) {
			return true
		}
	}
	return false
}

func wikiHTML(title, body string) string {
	return `<html><head><title>` + title + `</title>
<meta name="description" content="` + title + ` page">
<script>window.__DATA__ = {"space_id":"7001"};</script></head>
<body><article>` + body + `</article></body></html>`
}

// navWiki links home to two pages through its navigation.
func navWiki() *fakeWiki {
	return &fakeWiki{pages: map[string]string{
		"home": wikiHTML("Home", `<nav><a href="/wiki/p1">One</a> <a href="/wiki/p2">Two</a></nav><p>Welcome</p>`),
		"p1":   wikiHTML("Page One", `<p>first</p>`),
		"p2":   wikiHTML("Page Two", `<p>second</p>`),
	}}
}

const handbookTree = `{"code": 0, "data": {
  "tree": {
    "root_list": ["root"],
    "child_map": {"root": ["guide", "faq"], "guide": ["install"]},
    "nodes": {
      "root":    {"wiki_token": "root", "title": "", "has_child": true},
      "guide":   {"wiki_token": "guide", "title": "User Guide", "has_child": true, "parent_wiki_token": "root"},
      "faq":     {"wiki_token": "faq", "title": "FAQ", "parent_wiki_token": "root"},
      "install": {"wiki_token": "install", "title": "Install", "parent_wiki_token": "guide"}
    }
  },
  "space": {"name": "Handbook"}
}}`

func handbookWiki() *fakeWiki {
	return &fakeWiki{tree: handbookTree, pages: map[string]string{
		"guide":   wikiHTML("User Guide", `<p>guide</p>`),
		"faq":     wikiHTML("FAQ", `<p>faq</p>`),
		"install": wikiHTML("Install", `<p>install</p>`),
	}}
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
