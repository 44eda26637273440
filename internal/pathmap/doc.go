// Package pathmap maps a wiki tree onto filesystem paths.
//
// Each node's path is the chain of sanitized titles from its root down to
// the node. A synthetic space root wrapping the real top-level pages is
// detected and left out of the paths, so the output directory corresponds
// to the space itself. Nodes with children become directories holding an
// index.md and leaves become <Title>.md files in their parent's directory.
//
// All functions are safe on cyclic trees.
package pathmap
