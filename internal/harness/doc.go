// Package harness runs bookkeeping scenarios.
//
// A scenario is a YAML file describing a project with dummy repositories,
// the facts the database starts with, and what the database must hold after
// one or more bookkeeping runs. Scenarios are executable documentation of
// how bookkeeping treats heads, migrations and equivalences.
//
// # Scenario Format
//
//	name: detects_migration
//	description: "A migrated revision becomes an equivalence"
//	project:
//	  name: demo
//	  repositories:
//	    internal:
//	      type: dummy
//	      project_space: internal
//	      commits:
//	        - id: "1"
//	          files: {a.txt: "v1"}
//	    public:
//	      type: dummy
//	      commits:
//	        - id: "10"
//	          description: "MOE_MIGRATED_REVID=1"
//	          files: {a.txt: "v1"}
//	  translators: [...]
//	  migrations: [...]
//	seed:
//	  equivalences:
//	    - [internal@0, public@9]
//	runs: 1
//	assertions:
//	  - type: equivalence
//	    revisions: [internal@1, public@10]
//	  - type: migration_count
//	    count: 1
//
// Revisions are written repository@id. Instead of an inline project a
// scenario may name a configuration file with project_file, resolved
// relative to the scenario.
//
// # Assertion Types
//
//   - equivalence, no_equivalence: the pair in revisions is (not) recorded
//   - migration, no_migration: the from/to migration is (not) recorded
//   - equivalence_count, migration_count: the database holds exactly count facts
//
// # Deterministic Runs
//
// Every scenario gets a fresh in-memory store and fixed run ids (run-1,
// run-2, ...), so reports and database contents are reproducible and can be
// compared against golden files.
package harness
