// Package wikitree reconstructs the hierarchy of a wiki space from the
// space tree API.
//
// A single API response usually describes only part of a space: the
// ancestors and siblings of the requested page plus a few expanded levels.
// Builder fetches the tree for a starting page, then expands nodes that
// claim children the response did not include, merging every partial
// response into one model.WikiTree.
//
// Responses without the expected data.tree object are handed to a fallback
// parser that walks the JSON value looking for token fields.
package wikitree
