// Package ir provides the value types shared by every reposync package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Revision, Equivalence and SubmittedMigration are comparable values;
//     Go's == is the identity used for store deduplication
//   - Equivalence is unordered: NewEquivalence(a, b) == NewEquivalence(b, a)
//   - Metadata is never mutated after construction; use ToBuilder or the
//     With* helpers to derive a modified copy
//   - All JSON field names use snake_case; legacy camelCase names are
//     accepted on read only
package ir
