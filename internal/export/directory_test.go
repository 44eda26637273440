package export

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/wikiscrape/internal/model"
)

// listFiles returns the slash-separated paths of all regular files under
// dir.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	slices.Sort(files)
	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

const flatTree = `{"code": 0, "data": {
  "tree": {
    "root_list": ["root"],
    "child_map": {"root": ["alpha", "beta"]},
    "nodes": {
      "root":  {"wiki_token": "root", "title": "", "has_child": true},
      "alpha": {"wiki_token": "alpha", "title": "Alpha: Intro", "parent_wiki_token": "root"},
      "beta":  {"wiki_token": "beta", "title": "Beta/Guide", "parent_wiki_token": "root"}
    }
  },
  "space": {"name": "Docs"}
}}`

func TestDirectoryExport_ElidesSpaceRoot(t *testing.T) {
	t.Parallel()

	site := &wikiSite{tree: flatTree, pages: map[string]string{
		"root":  wikiPage("Space", `<p>root</p>`),
		"alpha": wikiPage("Alpha: Intro", `<p>alpha body</p>`),
		"beta":  wikiPage("Beta/Guide", `<p>beta body</p>`),
	}}
	s := newStack(t, site)
	out := filepath.Join(t.TempDir(), "out")

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/alpha", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if got, want := listFiles(t, out), []string{"Alpha_ Intro.md", "Beta_Guide.md"}; !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}

	content := readFile(t, filepath.Join(out, "Alpha_ Intro.md"))
	wantPrefix := "# Alpha: Intro\n\nSource: " + s.url + "/wiki/alpha\n\n"
	if !strings.HasPrefix(content, wantPrefix) || !strings.Contains(content, "alpha body") {
		t.Errorf("unexpected content %q", content)
	}

	if site.hitCount("root") != 0 {
		t.Error("the space root must not be fetched")
	}
	if site.hitCount("alpha") != 1 {
		t.Errorf("start page fetched %d times, want 1", site.hitCount("alpha"))
	}
}

const nestedTree = `{"code": 0, "data": {
  "tree": {
    "root_list": ["root"],
    "child_map": {"root": ["guide", "faq"]},
    "nodes": {
      "root":    {"wiki_token": "root", "title": "", "has_child": true},
      "guide":   {"wiki_token": "guide", "title": "User Guide", "has_child": true, "parent_wiki_token": "root"},
      "faq":     {"wiki_token": "faq", "title": "FAQ", "parent_wiki_token": "root"},
      "install": {"wiki_token": "install", "title": "Install", "parent_wiki_token": "guide"}
    }
  },
  "space": {"name": "Handbook"}
}}`

func nestedSite() *wikiSite {
	return &wikiSite{tree: nestedTree, pages: map[string]string{
		"guide":   wikiPage("User Guide", `<p>guide</p>`),
		"faq":     wikiPage("FAQ", `<p>faq</p>`),
		"install": wikiPage("Install", `<p>install</p>`),
	}}
}

func TestDirectoryExport_Nested(t *testing.T) {
	t.Parallel()

	s := newStack(t, nestedSite())
	out := t.TempDir()

	var written []string
	d := s.directory(WithSummary(true), WithOnWrite(func(p model.ScrapedPage, _ string) {
		written = append(written, p.Title)
	}))
	n, err := d.Export(context.Background(), s.url+"/wiki/guide", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d pages, want 3", n)
	}

	want := []string{"FAQ.md", "SUMMARY.md", "User Guide/Install.md", "User Guide/index.md"}
	if got := listFiles(t, out); !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
	if !slices.Equal(written, []string{"User Guide", "FAQ", "Install"}) {
		t.Errorf("pages should be written breadth-first, got %v", written)
	}

	summary := readFile(t, filepath.Join(out, SummaryFile))
	for _, frag := range []string{"# Handbook", "User%20Guide/Install.md", "Exported pages: 3"} {
		if !strings.Contains(summary, frag) {
			t.Errorf("summary missing %q:\n%s", frag, summary)
		}
	}
}

func TestDirectoryExport_Budget(t *testing.T) {
	t.Parallel()

	s := newStack(t, nestedSite())
	out := t.TempDir()

	n, err := s.directory(WithMaxPages(2)).Export(context.Background(), s.url+"/wiki/guide", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if got, want := listFiles(t, out), []string{"FAQ.md", "User Guide/index.md"}; !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
}

func TestDirectoryExport_SkipsFailedPages(t *testing.T) {
	t.Parallel()

	site := nestedSite()
	delete(site.pages, "faq")
	s := newStack(t, site)
	out := t.TempDir()

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/guide", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if got, want := listFiles(t, out), []string{"User Guide/Install.md", "User Guide/index.md"}; !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
}

func TestDirectoryExport_Cancelled(t *testing.T) {
	t.Parallel()

	s := newStack(t, nestedSite())
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := s.directory(WithDelay(time.Hour), WithOnWrite(func(model.ScrapedPage, string) {
		cancel()
	}))
	n, err := d.Export(ctx, s.url+"/wiki/guide", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Errorf("wrote %d pages, want 1", n)
	}
}

func TestDirectoryExport_WriteFailure(t *testing.T) {
	t.Parallel()

	s := newStack(t, nestedSite())
	out := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(out, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := s.directory().Export(context.Background(), s.url+"/wiki/guide", out)
	if err == nil {
		t.Fatal("expected an error when the output directory is a file")
	}
}

func TestDirectoryExport_FlatFallback(t *testing.T) {
	t.Parallel()

	site := &wikiSite{pages: map[string]string{
		"home": wikiPage("Home", `<nav><a href="/wiki/a">A</a><a href="/wiki/b">B</a></nav>`),
		"a":    wikiPage("Same / Name", `<p>a</p>`),
		"b":    wikiPage("Same / Name", `<p>b</p>`),
	}}
	s := newStack(t, site, "127.0.0.1")
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "Home.md"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/home", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d pages, want 3", n)
	}
	want := []string{"Home.md", "Home_1.md", "Same _ Name.md", "Same _ Name_1.md"}
	if got := listFiles(t, out); !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
	if readFile(t, filepath.Join(out, "Home.md")) != "old" {
		t.Error("existing files must not be overwritten")
	}
	if !strings.Contains(readFile(t, filepath.Join(out, "Same _ Name_1.md")), "Source: "+s.url+"/wiki/b") {
		t.Error("second page should get the numeric suffix")
	}
}

func TestDirectoryExport_InvalidURL(t *testing.T) {
	t.Parallel()

	d := NewDirectory(nil, nil, nil)
	if _, err := d.Export(context.Background(), "not a url", t.TempDir()); !errors.Is(err, ErrInvalidStartURL) {
		t.Errorf("got %v", err)
	}
}

func TestDirectoryExport_TreeWithoutStructureUsesFlatLayout(t *testing.T) {
	t.Parallel()

	site := &wikiSite{
		tree: `{"code":0,"data":{"wiki_token":"home"}}`,
		pages: map[string]string{
			"home": wikiPage("Home", `<nav><a href="/wiki/p1">One</a></nav>`),
			"p1":   wikiPage("Page One", `<p>first</p>`),
		},
	}
	s := newStack(t, site)
	out := t.TempDir()

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/home", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if got, want := listFiles(t, out), []string{"Home.md", "Page One.md"}; !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
}

func TestDirectoryExport_ChildWithoutNodeEntry(t *testing.T) {
	t.Parallel()

	site := &wikiSite{
		tree: `{"code": 0, "data": {"tree": {
		  "root_list": ["root"],
		  "child_map": {"root": ["a", "b"]},
		  "nodes": {
		    "root": {"title": "", "has_child": true},
		    "a":    {"title": "A", "parent_wiki_token": "root"}
		  }}}}`,
		pages: map[string]string{
			"a": wikiPage("A", `<p>a</p>`),
			"b": wikiPage("B", `<p>b</p>`),
		},
	}
	s := newStack(t, site)
	out := t.TempDir()

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/a", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if site.hitCount("b") != 1 {
		t.Errorf("page b fetched %d times, want 1", site.hitCount("b"))
	}
	if got, want := listFiles(t, out), []string{"A.md", "b.md"}; !slices.Equal(got, want) {
		t.Errorf("got files %v, want %v", got, want)
	}
}

func TestDirectoryExport_SiblingTitleCollision(t *testing.T) {
	t.Parallel()

	site := &wikiSite{
		tree: `{"code": 0, "data": {"tree": {
		  "root_list": ["root"],
		  "child_map": {"root": ["a", "b"]},
		  "nodes": {
		    "root": {"title": "", "has_child": true},
		    "a":    {"title": "Notes", "parent_wiki_token": "root"},
		    "b":    {"title": "Notes", "parent_wiki_token": "root"}
		  }}}}`,
		pages: map[string]string{
			"a": wikiPage("Notes", `<p>first notes</p>`),
			"b": wikiPage("Notes", `<p>second notes</p>`),
		},
	}
	s := newStack(t, site)
	out := t.TempDir()

	n, err := s.directory().Export(context.Background(), s.url+"/wiki/a", out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d pages, want 2", n)
	}
	if got, want := listFiles(t, out), []string{"Notes.md", "Notes_1.md"}; !slices.Equal(got, want) {
		t.Fatalf("got files %v, want %v", got, want)
	}
	if !strings.Contains(readFile(t, filepath.Join(out, "Notes.md")), "first notes") ||
		!strings.Contains(readFile(t, filepath.Join(out, "Notes_1.md")), "second notes") {
		t.Error("each sibling should keep its own content")
	}
}
