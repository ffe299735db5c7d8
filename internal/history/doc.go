// Package history crawls revision histories backwards from a starting point.
//
// A crawl walks parent links breadth-first and asks a Matcher, for each
// revision it reaches, whether the walk should stop there. Revisions that do
// not match are recorded with their metadata in a Graph; revisions that do
// match are crawl boundaries and are never expanded. When the worklist is
// exhausted the Matcher turns the Graph and the boundary list into its
// result, so one crawler serves several unrelated searches:
//
//   - store.EquivalenceMatcher finds the revisions since the last recorded
//     equivalence with another repository.
//   - ExactMatcher finds the revisions of a branch back to a known branch
//     point.
//
// Crawls are bounded. Visiting more than the configured number of revisions
// (DefaultMaxRevisions unless WithMaxRevisions says otherwise) fails with a
// *CrawlLimitError rather than returning a truncated graph.
//
// Repositories are reached through the History interface, implemented by the
// adapters in package repository.
package history
