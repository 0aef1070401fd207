package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// Phase is one step of an import run.
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhaseClean         Phase = "clean"
	PhaseBranches      Phase = "branches"
	PhaseContacts      Phase = "contacts"
	PhaseATMs          Phase = "atms"
	PhaseSupplementary Phase = "supplementary"
)

// ImportPhases are the selectable phases in the order a run executes them.
var ImportPhases = []Phase{PhaseBranches, PhaseContacts, PhaseATMs, PhaseSupplementary}

// ParsePhase parses a selectable phase name.
func ParsePhase(s string) (Phase, error) {
	key := Phase(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range ImportPhases {
		if p == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q (want one of branches, contacts, atms, supplementary)", s)
}

// MissPolicy decides what a phase does when a branch name resolves to nothing.
type MissPolicy string

const (
	// MissSkip leaves the row's branch reference unresolved.
	MissSkip MissPolicy = "skip"
	// MissCreate creates the branch under the default district.
	MissCreate MissPolicy = "create"
)

// PhasePolicy configures branch resolution for one phase.
type PhasePolicy struct {
	OnMiss MissPolicy
	// MaxTier caps the resolver cascade. Zero means every tier.
	MaxTier core.MatchTier
}

// Policies holds the per-phase resolution policies.
type Policies struct {
	Branches      PhasePolicy
	Contacts      PhasePolicy
	ATMs          PhasePolicy
	Supplementary PhasePolicy
}

// DefaultPolicies returns the policies used when none are configured.
//
// Branch rows only match an existing branch on exact or case-folded names:
// looser tiers would fold "Hawassa" into "Hawassa Main" when both appear in
// the branch list. The other phases try every tier. Setting
// Branches.MaxTier to core.TierFirstToken (IMPORT_BRANCH_MATCH_TIER or
// --match-tier "first-token") runs branch rows through the full cascade too.
func DefaultPolicies() Policies {
	return Policies{
		Branches:      PhasePolicy{OnMiss: MissCreate, MaxTier: core.TierFold},
		Contacts:      PhasePolicy{OnMiss: MissSkip},
		ATMs:          PhasePolicy{OnMiss: MissSkip},
		Supplementary: PhasePolicy{OnMiss: MissCreate},
	}
}

// Sources lists the input files per phase. Files are processed in order.
type Sources struct {
	Branches      []string
	Contacts      []string
	ATMs          []string
	Supplementary []string
}

// Taxonomy is the region and district baseline ensured by SETUP.
type Taxonomy struct {
	RegionName      string
	RegionCode      string
	Districts       []string
	DefaultDistrict string
}

// DefaultTaxonomy returns the South Region baseline.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		RegionName:      "South Region",
		RegionCode:      "SOUTH",
		Districts:       []string{"Hawassa", "Shashemene", "Dilla"},
		DefaultDistrict: "Hawassa",
	}
}

// RunOptions selects what a run does.
type RunOptions struct {
	// Reset deletes all branches, contacts and ATMs before importing.
	Reset bool
	// Phases restricts the run to the listed import phases. Empty means all.
	Phases []Phase
}

func (o RunOptions) selected(p Phase) bool {
	if len(o.Phases) == 0 {
		return true
	}
	for _, sel := range o.Phases {
		if sel == p {
			return true
		}
	}
	return false
}

// PhaseResult summarizes one phase of a run.
type PhaseResult struct {
	Phase     Phase         `json:"phase"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Warnings  []string      `json:"warnings,omitempty"`
	Err       string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the phase was rolled back.
func (r PhaseResult) Failed() bool { return r.Err != "" }

func (r *PhaseResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// RunResult summarizes a whole run.
type RunResult struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`
	Phases    []PhaseResult `json:"phases"`
	Counts    core.Counts   `json:"counts"`
	Error     string        `json:"error,omitempty"`
}

// Phase returns the result recorded for p.
func (r *RunResult) Phase(p Phase) (PhaseResult, bool) {
	for _, pr := range r.Phases {
		if pr.Phase == p {
			return pr, true
		}
	}
	return PhaseResult{}, false
}

// PhaseError is a phase that failed as a whole and was rolled back.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
