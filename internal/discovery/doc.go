// Package discovery finds the wiki pages linked from a scraped page.
//
// Four strategies run in order and their results are concatenated with
// duplicates removed:
//
//  1. Tree API: on known wiki hosts the space tree is requested for the
//     page. A non-empty answer is returned as is and the remaining
//     strategies are skipped.
//  2. Navigation: anchors inside sidebar, menu and table of contents
//     containers.
//  3. Content: every anchor whose href contains /wiki/.
//  4. Scripts: wiki_token and obj_token values embedded in inline scripts.
//
// Strategies 2 to 4 only keep URLs on the page's own host.
package discovery
