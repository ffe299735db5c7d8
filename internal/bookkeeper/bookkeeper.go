// Package bookkeeper keeps the equivalence database up to date.
//
// For every configured migration the bookkeeper first checks whether the
// two repository heads hold the same code, then walks the destination
// repository back to its last known equivalence looking for revisions a
// previous migration produced. Every such revision is recorded as a
// SubmittedMigration and, when its code matches its source revision, as a
// new Equivalence.
package bookkeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/config"
	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/store"
)

// MigratedRevisionField is the description field a migration leaves on the
// revision it creates. Its value is the source revision id.
const MigratedRevisionField = "MOE_MIGRATED_REVID"

// Bookkeeper updates a store from a project's repositories.
type Bookkeeper struct {
	project   *config.Context
	creator   codebase.Creator
	differ    codebase.Differ
	store     store.Store
	logger    *slog.Logger
	runIDs    RunIDGenerator
	crawlOpts []history.CrawlOption
}

// Option configures a Bookkeeper.
type Option func(*Bookkeeper)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bookkeeper) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRunIDGenerator sets how runs are named. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(b *Bookkeeper) {
		b.runIDs = g
	}
}

// WithCrawlOptions passes options to every history crawl, e.g.
// history.WithMaxRevisions.
func WithCrawlOptions(opts ...history.CrawlOption) Option {
	return func(b *Bookkeeper) {
		b.crawlOpts = append(b.crawlOpts, opts...)
	}
}

// New creates a Bookkeeper.
func New(project *config.Context, creator codebase.Creator, differ codebase.Differ, st store.Store, opts ...Option) *Bookkeeper {
	b := &Bookkeeper{
		project: project,
		creator: creator,
		differ:  differ,
		store:   st,
		logger:  slog.Default(),
		runIDs:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bookkeep processes every migration in configuration order.
//
// The store is written once at the end whatever happened, so facts learned
// before a failure are kept. Codebases that cannot be created are logged
// and treated as not equivalent; any other error stops the run.
func (b *Bookkeeper) Bookkeep(ctx context.Context) (*Report, error) {
	r := &run{
		Bookkeeper:  b,
		report:      &Report{RunID: b.runIDs.Generate(), Database: b.store.Location()},
		testedHeads: make(map[headPair]bool),
	}
	r.log = b.logger.With("run", r.report.RunID)
	r.log.Info("bookkeeping started", "database", b.store.Location(), "migrations", len(b.project.Project.Migrations))

	var errs []error
	for _, m := range b.project.Project.Migrations {
		mr := &MigrationReport{Name: m.Name, From: m.FromRepository, To: m.ToRepository}
		err := r.bookkeepMigration(ctx, m, mr)
		r.report.Migrations = append(r.report.Migrations, *mr)
		if err != nil {
			errs = append(errs, fmt.Errorf("migration %s: %w", m.Name, err))
			break
		}
	}

	if err := b.store.Write(ctx); err != nil {
		errs = append(errs, fmt.Errorf("write database %s: %w", b.store.Location(), err))
	}

	err := errors.Join(errs...)
	if err != nil {
		r.log.Error("bookkeeping failed", "error", err)
	} else {
		r.log.Info("bookkeeping finished")
	}
	return r.report, err
}

// headPair is an unordered pair of head revisions.
type headPair struct {
	a, b ir.Revision
}

func newHeadPair(x, y ir.Revision) headPair {
	if y.String() < x.String() {
		x, y = y, x
	}
	return headPair{a: x, b: y}
}

// run is the state of one Bookkeep call.
type run struct {
	*Bookkeeper
	log         *slog.Logger
	report      *Report
	testedHeads map[headPair]bool
}

func (r *run) bookkeepMigration(ctx context.Context, m config.MigrationConfig, mr *MigrationReport) error {
	log := r.log.With("migration", m.Name)
	log.Info("bookkeeping migration", "from", m.FromRepository, "to", m.ToRepository)

	translator, err := r.project.Project.FindTranslator(m.FromRepository, m.ToRepository)
	if err != nil {
		return err
	}
	mr.Inverse = translator.Inverse

	if translator.Inverse {
		log.Debug("head check skipped for inverse translator")
	} else if err := r.checkHeads(ctx, log, m, mr); err != nil {
		return err
	}

	return r.noteCompletedMigrations(ctx, log, m, translator.Inverse, mr)
}

func (r *run) checkHeads(ctx context.Context, log *slog.Logger, m config.MigrationConfig, mr *MigrationReport) error {
	fromHead, err := r.head(ctx, m.FromRepository)
	if err != nil {
		return err
	}
	toHead, err := r.head(ctx, m.ToRepository)
	if err != nil {
		return err
	}

	pair := newHeadPair(fromHead, toHead)
	if r.testedHeads[pair] {
		log.Debug("head pair already checked", "from", fromHead.String(), "to", toHead.String())
		return nil
	}
	r.testedHeads[pair] = true

	eq, found, err := r.determineEquivalence(ctx, log, fromHead, toHead)
	if err != nil {
		return err
	}
	if !found {
		log.Info("no equivalence at head", "from", fromHead.String(), "to", toHead.String())
		return nil
	}
	if err := r.store.NoteEquivalence(ctx, eq); err != nil {
		return err
	}
	mr.HeadEquivalence = true
	mr.EquivalencesNoted++
	log.Info("equivalence found at head", "equivalence", eq.String())
	return nil
}

func (r *run) head(ctx context.Context, repo string) (ir.Revision, error) {
	rep, err := r.project.Repository(repo)
	if err != nil {
		return ir.Revision{}, err
	}
	return rep.History.FindHighestRevision(ctx, "")
}

func (r *run) noteCompletedMigrations(ctx context.Context, log *slog.Logger, m config.MigrationConfig, inverse bool, mr *MigrationReport) error {
	to, err := r.project.Repository(m.ToRepository)
	if err != nil {
		return err
	}

	matcher := store.EquivalenceMatcher{OtherRepository: m.FromRepository, Store: r.store}
	result, err := history.Crawl(ctx, to.History, nil, matcher, history.Branched, r.crawlOpts...)
	if err != nil {
		return err
	}

	graph := result.RevisionsSinceEquivalence
	revs := graph.BreadthFirstHistory()
	mr.RevisionsScanned = len(revs)
	log.Info("revisions since equivalence",
		"repository", m.ToRepository,
		"count", len(revs),
		"equivalences", len(result.Equivalences))

	processed := 0
	for _, toRev := range revs {
		processed++
		meta, _ := graph.Metadata(toRev)
		fromID, ok := meta.Fields.First(MigratedRevisionField)
		if !ok {
			mr.Unmigrated++
			continue
		}
		migration := ir.NewSubmittedMigration(ir.NewRevision(fromID, m.FromRepository), toRev)
		found, err := r.processMigration(ctx, log, migration, inverse, mr)
		if err != nil {
			return err
		}
		if found {
			log.Info("equivalence found, skipping remaining revisions", "migration", migration.String())
			break
		}
	}
	mr.Processed = processed
	mr.Skipped = len(revs) - processed
	return nil
}

func (r *run) processMigration(ctx context.Context, log *slog.Logger, migration ir.SubmittedMigration, inverse bool, mr *MigrationReport) (bool, error) {
	recorded, err := r.store.HasMigration(ctx, migration)
	if err != nil {
		return false, err
	}
	if recorded {
		mr.AlreadyRecorded++
		log.Debug("migration already recorded", "migration", migration.String())
		return false, nil
	}

	var (
		eq    ir.Equivalence
		found bool
	)
	if inverse {
		eq, found, err = r.determineEquivalence(ctx, log, migration.To, migration.From)
	} else {
		eq, found, err = r.determineEquivalence(ctx, log, migration.From, migration.To)
	}
	if err != nil {
		return false, err
	}
	if found {
		if err := r.store.NoteEquivalence(ctx, eq); err != nil {
			return false, err
		}
		mr.EquivalencesNoted++
		log.Info("equivalence recorded", "equivalence", eq.String())
	}

	added, err := r.store.NoteMigration(ctx, migration)
	if err != nil {
		return false, err
	}
	if added {
		mr.MigrationsNoted++
	}
	if err := r.store.Write(ctx); err != nil {
		return false, err
	}
	return found, nil
}

// determineEquivalence compares from, translated into to's project space,
// with to as stored. A codebase that cannot be created means no
// equivalence.
func (r *run) determineEquivalence(ctx context.Context, log *slog.Logger, from, to ir.Revision) (ir.Equivalence, bool, error) {
	toConfig, err := r.project.Project.Repository(to.RepositoryName)
	if err != nil {
		return ir.Equivalence{}, false, err
	}

	fromCodebase, err := r.creator.Create(ctx, from, toConfig.ProjectSpace)
	if err != nil {
		return ir.Equivalence{}, false, r.creationFailure(log, err)
	}
	toCodebase, err := r.creator.Create(ctx, to, "")
	if err != nil {
		return ir.Equivalence{}, false, r.creationFailure(log, err)
	}

	different, err := r.differ.AreDifferent(ctx, fromCodebase, toCodebase)
	if err != nil {
		return ir.Equivalence{}, false, fmt.Errorf("diff %s and %s: %w", fromCodebase, toCodebase, err)
	}
	log.Debug("codebases compared", "from", fromCodebase.String(), "to", toCodebase.String(), "different", different)
	if different {
		return ir.Equivalence{}, false, nil
	}

	eq, err := ir.NewEquivalence(from, to)
	if err != nil {
		return ir.Equivalence{}, false, err
	}
	return eq, true, nil
}

// creationFailure downgrades codebase creation errors to a warning.
func (r *run) creationFailure(log *slog.Logger, err error) error {
	if !codebase.IsCreationError(err) {
		return err
	}
	r.report.Warnings++
	log.Warn("could not create codebase", "error", err)
	return nil
}
