// Package importer reconciles the bank's inventory spreadsheets into the
// store.
//
// A run walks a fixed sequence of phases inside one transaction:
//
//	setup -> clean (only on reset) -> branches -> contacts -> atms -> supplementary
//
// Setup must succeed or the whole run is rolled back. Every later phase runs
// under its own savepoint: a phase that fails is undone and reported while
// the run carries on. Inside a phase every row has a savepoint too, so one
// bad row costs only that row.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/netinventory/internal/audit"
	"github.com/JonMunkholm/netinventory/internal/core"
)

// Importer runs imports against a store.
type Importer struct {
	Store    core.Store
	Journal  *audit.Journal // nil disables the row journal
	Sources  Sources
	Taxonomy Taxonomy
	Policies Policies
	Reader   core.ReadOptions
	Logger   *slog.Logger

	// DryRun runs every phase and reports the outcome, then rolls the
	// transaction back.
	DryRun bool
}

// errDryRun unwinds the transaction of a dry run.
var errDryRun = errors.New("dry run")

// New creates an Importer over store with the default taxonomy and policies.
func New(store core.Store, sources Sources) *Importer {
	return &Importer{
		Store:    store,
		Sources:  sources,
		Taxonomy: DefaultTaxonomy(),
		Policies: DefaultPolicies(),
	}
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

// Run executes one import. The returned result is never nil; when err is
// non-nil nothing was committed.
func (im *Importer) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	res := &RunResult{RunID: uuid.New(), StartedAt: time.Now(), DryRun: im.DryRun}
	logger := im.logger().With("run_id", res.RunID.String())
	logger.Info("import started",
		"reset", opts.Reset,
		"phases", opts.Phases,
		"dry_run", im.DryRun,
	)

	err := im.Store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		res.Phases = nil
		r := &run{Importer: im, tx: tx, logger: logger}

		setup, err := r.runPhase(ctx, PhaseSetup, r.setup)
		res.Phases = append(res.Phases, setup)
		if err != nil {
			return err
		}
		if setup.Failed() {
			return &PhaseError{Phase: PhaseSetup, Err: errors.New(setup.Err)}
		}

		if opts.Reset {
			clean, err := r.runPhase(ctx, PhaseClean, r.clean)
			res.Phases = append(res.Phases, clean)
			if err != nil {
				return err
			}
		}

		for _, p := range ImportPhases {
			if !opts.selected(p) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			pr, err := r.runPhase(ctx, p, r.phaseFunc(p))
			res.Phases = append(res.Phases, pr)
			if err != nil {
				return err
			}
		}

		counts, err := tx.Counts(ctx)
		if err != nil {
			return fmt.Errorf("count inventory: %w", err)
		}
		res.Counts = counts
		if err := ctx.Err(); err != nil {
			return err
		}
		if im.DryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}

	res.Duration = time.Since(res.StartedAt)
	if err != nil {
		res.Error = err.Error()
		logger.Error("import failed, changes rolled back",
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res, fmt.Errorf("import run %s: %w", res.RunID, err)
	}

	logger.Info("import completed",
		"branches", res.Counts.Branches,
		"contacts", res.Counts.Contacts,
		"atms", res.Counts.ATMs,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// run is the state of one Run inside its transaction.
type run struct {
	*Importer
	tx     core.Tx
	logger *slog.Logger

	// district receives branches created on a resolution miss.
	district *int64
}

type phaseFunc func(ctx context.Context, pr *PhaseResult) error

func (r *run) phaseFunc(p Phase) phaseFunc {
	switch p {
	case PhaseBranches:
		return r.importBranches
	case PhaseContacts:
		return r.importContacts
	case PhaseATMs:
		return r.importATMs
	case PhaseSupplementary:
		return r.importSupplementary
	}
	return func(context.Context, *PhaseResult) error {
		return fmt.Errorf("phase %q cannot be run directly", p)
	}
}

// runPhase runs fn under a savepoint named after the phase. A failed phase is
// rolled back and recorded in the result; its created and updated counts are
// cleared because none of that work survives. The returned error is non-nil
// only when the rollback itself failed and the transaction is lost.
func (r *run) runPhase(ctx context.Context, p Phase, fn phaseFunc) (PhaseResult, error) {
	pr := PhaseResult{Phase: p}
	logger := r.logger.With("phase", string(p))
	start := time.Now()

	var phaseErr error
	err := core.WithSavepoint(ctx, r.tx, "phase_"+string(p), func() error {
		phaseErr = fn(ctx, &pr)
		return phaseErr
	})
	pr.Duration = time.Since(start)

	if err != nil {
		pr.Err = err.Error()
		pr.Created, pr.Updated = 0, 0
		logger.Error("phase failed, rolled back",
			"error", err,
			"duration_ms", pr.Duration.Milliseconds(),
		)
		if err != phaseErr {
			return pr, &PhaseError{Phase: p, Err: err}
		}
		return pr, nil
	}

	logger.Info("phase completed",
		"created", pr.Created,
		"updated", pr.Updated,
		"unchanged", pr.Unchanged,
		"skipped", pr.Skipped,
		"errors", pr.Errors,
		"warnings", len(pr.Warnings),
		"duration_ms", pr.Duration.Milliseconds(),
	)
	return pr, nil
}

// journalEntry names the entity a row was written to.
type journalEntry struct {
	kind core.EntityKind
	id   string
}

func branchEntry(b *core.Branch) journalEntry {
	return journalEntry{kind: core.KindBranch, id: b.ID.String()}
}

func contactEntry(c *core.ContactPerson) journalEntry {
	return journalEntry{kind: core.KindContact, id: strconv.FormatInt(c.ID, 10)}
}

func atmEntry(a *core.ATM) journalEntry {
	return journalEntry{kind: core.KindATM, id: strconv.FormatInt(a.ID, 10)}
}

type rowFunc func(ctx context.Context, pr *PhaseResult, src source) (journalEntry, error)

// source is one row in the context of the table it came from.
type source struct {
	table *core.Table
	row   core.Row
}

// String locates the row for warnings, e.g. "contacts.csv line 4".
func (s source) String() string {
	return fmt.Sprintf("%s line %d", s.table.Name(), s.row.Line)
}

// eachRow reads every file in paths and calls fn once per row under a row
// savepoint. Unreadable files and failing rows are counted as errors and the
// phase moves on. Each row is journaled whatever its outcome, under kind when
// fn produced no entity.
func (r *run) eachRow(ctx context.Context, pr *PhaseResult, kind core.EntityKind, paths []string, fn rowFunc) error {
	for _, path := range paths {
		table, err := core.ReadTable(path, r.Reader)
		if err != nil {
			pr.Errors++
			pr.warnf("%v", err)
			r.logger.Warn("source skipped", "phase", string(pr.Phase), "path", path, "error", err)
			continue
		}
		r.logger.Debug("source read",
			"phase", string(pr.Phase),
			"path", path,
			"encoding", table.Encoding,
			"rows", len(table.Rows),
		)

		for _, row := range table.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := source{table: table, row: row}
			before := *pr

			var entry journalEntry
			err := core.WithSavepoint(ctx, r.tx, "import_row", func() error {
				var err error
				entry, err = fn(ctx, pr, src)
				return err
			})
			if errors.Is(err, core.ErrTxAborted) {
				// Not wrapped: whether the transaction survives is decided
				// by rolling back the phase.
				return fmt.Errorf("%s: %v", src, err)
			}
			if err != nil {
				pr.Created, pr.Updated, pr.Unchanged, pr.Skipped = before.Created, before.Updated, before.Unchanged, before.Skipped
				pr.Errors++
				pr.warnf("%s: %v", src, err)
				r.logger.Debug("row failed", "phase", string(pr.Phase), "row", src.String(), "error", err)
				entry = journalEntry{}
			}
			if entry.kind == "" {
				entry.kind = kind
			}
			r.journal(table, row, entry)
		}
	}
	return nil
}

func (r *run) journal(table *core.Table, row core.Row, entry journalEntry) {
	rec := core.AuditRecord{
		SourceFile: table.Path,
		EntityKind: entry.kind,
		Row:        row.Map(),
	}
	if entry.id != "" {
		id := entry.id
		rec.EntityID = &id
	}
	r.Journal.Append(rec)
}
