// Package repository adapts version control systems to the history and
// export contracts the rest of reposync works against.
//
// GitHistory reads a git repository through go-git, either a local clone
// opened in place or a remote cloned into memory. MemoryHistory serves
// canned commits and backs "dummy" repositories and tests. Both implement
// history.History and codebase.Exporter.
package repository
