package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/netinventory/internal/audit"
	"github.com/JonMunkholm/netinventory/internal/config"
	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/importer"
	"github.com/JonMunkholm/netinventory/internal/store/memory"
)

type importFlags struct {
	reset     bool
	dryRun    bool
	jsonOut   bool
	phases    []string
	matchTier string

	branches      []string
	contacts      []string
	atms          []string
	supplementary []string
}

func newImportCommand(a *app) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the branch, contact, ATM and supplementary spreadsheets",
		Long: `Import reads every configured source and reconciles it into the inventory
inside a single transaction. A phase that fails is rolled back and reported
while the others are kept.

Sources default to IMPORT_*_FILES resolved against IMPORT_DATA_DIR. File flags
replace the configured list for that phase and are used as given.

With --dry-run the run is rolled back and no journal is written. Without
DATABASE_URL a dry run works against an empty in-memory store.

When REDIS_URL is set the run also holds the shared import lock, so it fails
while a server or another CLI is importing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&f.reset, "reset", false, "delete branches, contacts and ATMs before importing")
	fl.BoolVar(&f.dryRun, "dry-run", false, "run every phase, report, then roll back")
	fl.BoolVar(&f.jsonOut, "json", false, "print the run result as JSON")
	fl.StringSliceVar(&f.phases, "phase", nil, "only run these phases (branches, contacts, atms, supplementary)")
	fl.StringVar(&f.matchTier, "match-tier", "", "override IMPORT_BRANCH_MATCH_TIER for the branch phase")
	fl.StringSliceVar(&f.branches, "branches", nil, "branch source files")
	fl.StringSliceVar(&f.contacts, "contacts", nil, "contact source files")
	fl.StringSliceVar(&f.atms, "atms", nil, "ATM source files")
	fl.StringSliceVar(&f.supplementary, "supplementary", nil, "supplementary network source files")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, f importFlags) error {
	opts := importer.RunOptions{Reset: f.reset}
	for _, name := range f.phases {
		p, err := importer.ParsePhase(name)
		if err != nil {
			return err
		}
		opts.Phases = append(opts.Phases, p)
	}

	tierName := a.cfg.Import.BranchMatchTier
	if f.matchTier != "" {
		tierName = f.matchTier
	}
	tier, err := core.ParseMatchTier(tierName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Import.Timeout)
	defer cancel()

	var store core.Store
	if f.dryRun && a.cfg.Database.URL == "" {
		a.logger.Info("dry run without DATABASE_URL, using an empty in-memory store")
		store = memory.New()
	} else {
		s, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	im := a.newImporter(store, sourcesFor(&a.cfg.Import, f))
	im.Policies.Branches.MaxTier = tier
	im.DryRun = f.dryRun
	if f.dryRun {
		im.Journal = nil
	}

	var res *importer.RunResult
	if f.dryRun {
		res, err = im.Run(ctx, opts)
	} else {
		runner, closeLock, rerr := a.newRunner(ctx, im, nil)
		if rerr != nil {
			return rerr
		}
		defer closeLock()
		res, err = runner.Run(ctx, opts)
	}
	if res == nil {
		return err
	}
	if f.jsonOut {
		if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
			return werr
		}
	} else {
		printRunResult(cmd.OutOrStdout(), res)
	}
	if err != nil {
		return err
	}

	if failed := failedPhases(res); failed > 0 {
		return fmt.Errorf("%d phase(s) failed and were rolled back", failed)
	}
	return nil
}

// newImporter builds an importer from configuration.
func (a *app) newImporter(store core.Store, sources importer.Sources) *importer.Importer {
	im := importer.New(store, sources)
	im.Logger = a.logger
	im.Journal = audit.New(a.cfg.Audit.Dir, a.logger)
	im.Reader = core.ReadOptions{Encodings: a.cfg.Import.Encodings}
	im.Taxonomy = importer.Taxonomy{
		RegionName:      a.cfg.Taxonomy.RegionName,
		RegionCode:      a.cfg.Taxonomy.RegionCode,
		Districts:       a.cfg.Taxonomy.Districts,
		DefaultDistrict: a.cfg.Taxonomy.DefaultDistrict,
	}
	if tier, err := core.ParseMatchTier(a.cfg.Import.BranchMatchTier); err == nil {
		im.Policies.Branches.MaxTier = tier
	}
	return im
}

// configuredSources resolves the IMPORT_*_FILES lists against the data dir.
func configuredSources(c *config.ImportConfig) importer.Sources {
	return importer.Sources{
		Branches:      c.Paths(c.BranchFiles),
		Contacts:      c.Paths(c.ContactFiles),
		ATMs:          c.Paths(c.ATMFiles),
		Supplementary: c.Paths(c.SupplementaryFiles),
	}
}

func sourcesFor(c *config.ImportConfig, f importFlags) importer.Sources {
	s := configuredSources(c)
	if len(f.branches) > 0 {
		s.Branches = f.branches
	}
	if len(f.contacts) > 0 {
		s.Contacts = f.contacts
	}
	if len(f.atms) > 0 {
		s.ATMs = f.atms
	}
	if len(f.supplementary) > 0 {
		s.Supplementary = f.supplementary
	}
	return s
}

func failedPhases(res *importer.RunResult) int {
	n := 0
	for _, pr := range res.Phases {
		if pr.Failed() {
			n++
		}
	}
	return n
}
