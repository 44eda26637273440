package wikitree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/wikiscrape/internal/fetch"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/wikiurl"
)

// APIPath is the path of the space tree endpoint.
const APIPath = "/space/api/wiki/v2/tree/get_info/"

// DefaultExpansionRounds is the number of expansion passes. One pass
// expands the nodes missing children in the initial response only.
const DefaultExpansionRounds = 1

// Fetcher retrieves a URL. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values) (*fetch.Response, error)
}

// Builder fetches and assembles wiki trees.
type Builder struct {
	fetcher Fetcher
	delay   time.Duration
	rounds  int
	logger  *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithExpansionDelay sets the pause before every expansion request.
func WithExpansionDelay(d time.Duration) Option {
	return func(b *Builder) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithExpansionRounds caps the number of expansion passes. Each pass
// expands the nodes still missing children after the previous one.
func WithExpansionRounds(n int) Option {
	return func(b *Builder) {
		if n >= 0 {
			b.rounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder that calls the tree API through f.
func NewBuilder(f Fetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher: f,
		rounds:  DefaultExpansionRounds,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// APIURL returns the tree endpoint on the host of pageURL.
func APIURL(pageURL string) (string, error) {
	scheme, host, err := wikiurl.Origin(pageURL)
	if err != nil {
		return "", err
	}
	if scheme == "" || host == "" {
		return "", fmt.Errorf("%w: %q", fetch.ErrInvalidURL, pageURL)
	}
	return scheme + "://" + host + APIPath, nil
}

// Query returns the tree API parameters.
func Query(spaceID, wikiToken string, withSpace bool) url.Values {
	q := url.Values{}
	q.Set("space_id", spaceID)
	q.Set("with_space", fmt.Sprintf("%t", withSpace))
	q.Set("with_perm", "true")
	q.Set("expand_shortcut", "true")
	q.Set("need_shared", "true")
	q.Set("exclude_fields", "5")
	q.Set("with_deleted", "true")
	q.Set("wiki_token", wikiToken)
	return q
}

// Fetch requests the tree around wikiToken. baseURL is any URL on the
// wiki host.
//
// A response with a non-zero code is logged and yields an empty tree with
// a nil error. Transport and decoding failures are returned as errors.
func (b *Builder) Fetch(ctx context.Context, baseURL, spaceID, wikiToken string, withSpace bool) (*model.WikiTree, error) {
	apiURL, err := APIURL(baseURL)
	if err != nil {
		return nil, err
	}
	scheme, host, _ := wikiurl.Origin(baseURL) //nolint:errcheck // validated by APIURL

	b.logger.Debug("fetching wiki tree", "url", apiURL, "space_id", spaceID, "wiki_token", wikiToken, "with_space", withSpace)
	resp, err := b.fetcher.Get(ctx, apiURL, Query(spaceID, wikiToken, withSpace))
	if err != nil {
		return nil, fmt.Errorf("fetch wiki tree: %w", err)
	}

	tree, err := Parse(resp.Body, scheme, host)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			b.logger.Warn("wiki tree API returned an error; authentication may be required",
				"code", apiErr.Code, "msg", apiErr.Msg)
			return model.NewWikiTree(), nil
		}
		return nil, err
	}
	b.logger.Debug("fetched wiki tree", "nodes", len(tree.Nodes), "parents", len(tree.ChildMap), "roots", len(tree.RootTokens))
	return tree, nil
}

// Expand fetches the children of nodes that report HasChildren but have no
// ChildMap entry and merges them into a copy of tree. Failed requests are
// logged and skipped. Every token is requested at most once, so the number
// of requests is bounded even when the API keeps reporting new nodes.
func (b *Builder) Expand(ctx context.Context, baseURL, spaceID string, tree *model.WikiTree) *model.WikiTree {
	result := tree.Clone()
	attempted := make(map[string]bool)

	for round := 0; round < b.rounds; round++ {
		pending := incomplete(result, attempted)
		if len(pending) == 0 {
			break
		}
		b.logger.Info("expanding subtrees with missing children", "count", len(pending), "round", round+1)

		for _, token := range pending {
			attempted[token] = true
			if !sleep(ctx, b.delay) {
				return result
			}
			partial, err := b.Fetch(ctx, baseURL, spaceID, token, false)
			if err != nil {
				b.logger.Warn("failed to expand subtree", "wiki_token", token, "error", err)
				continue
			}
			if partial.Fallback {
				b.logger.Debug("subtree response has no tree structure", "wiki_token", token)
				continue
			}
			before := len(result.Nodes)
			result = Merge(result, partial)
			b.logger.Debug("expanded subtree", "wiki_token", token, "new_nodes", len(result.Nodes)-before)
		}
	}
	return result
}

// Build fetches the tree for wikiToken and expands incomplete subtrees.
// A response without a tree object yields an empty tree, since its tokens
// carry no hierarchy.
func (b *Builder) Build(ctx context.Context, baseURL, spaceID, wikiToken string) (*model.WikiTree, error) {
	tree, err := b.Fetch(ctx, baseURL, spaceID, wikiToken, true)
	if err != nil {
		return nil, err
	}
	if tree.Fallback {
		b.logger.Warn("wiki tree response has no tree structure", "wiki_token", wikiToken, "tokens", len(tree.Nodes))
		return model.NewWikiTree(), nil
	}
	if tree.IsEmpty() {
		return tree, nil
	}
	return b.Expand(ctx, baseURL, spaceID, tree), nil
}

// incomplete returns, in token order, the nodes that claim children but
// have no ChildMap entry and have not been attempted yet.
func incomplete(tree *model.WikiTree, attempted map[string]bool) []string {
	var pending []string
	for _, token := range tree.SortedTokens() {
		if attempted[token] || !tree.Nodes[token].HasChildren {
			continue
		}
		if _, ok := tree.ChildMap[token]; ok {
			continue
		}
		pending = append(pending, token)
	}
	return pending
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
