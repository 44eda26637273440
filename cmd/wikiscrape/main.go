// Package main provides the entry point for the wikiscrape CLI.
//
// wikiscrape crawls Feishu/Lark wiki spaces and converts every page to
// Markdown. Output is a single Markdown file, a JSON array, a
// Firecrawl-compatible envelope or a directory tree mirroring the wiki
// hierarchy.
//
// Usage:
//
//	wikiscrape scrape https://acme.feishu.cn/wiki/AbCdEf
//	wikiscrape scrape -o docs/ --cookies '{"session":"..."}' URL
//
// See --help for all available options.
package main

func main() {
	Execute()
}
