package core

// resolver.go matches free-text branch names from the sources against the
// branches already in the store.
//
// There is no shared key across the spreadsheets; the same branch shows up as
// "Hawassa Branch", "HAWASSA" and "Hawassa Main". The resolver walks a
// cascade of increasingly loose tiers and stops at the first one that
// matches. Within a tier the lexicographically smallest name wins so that a
// run is reproducible.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// MatchTier identifies which step of the cascade produced a match.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierFold
	TierContains
	TierFirstToken
)

var tierNames = map[MatchTier]string{
	TierNone:       "none",
	TierExact:      "exact",
	TierFold:       "fold",
	TierContains:   "contains",
	TierFirstToken: "first-token",
}

func (t MatchTier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseMatchTier parses the names produced by MatchTier.String.
func ParseMatchTier(s string) (MatchTier, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range tierNames {
		if name == key && t != TierNone {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown match tier %q", s)
}

// BranchFinder is the slice of the store the resolver reads from.
type BranchFinder interface {
	FindBranchByName(ctx context.Context, name string) (*Branch, error)
	FindBranchesByNameFold(ctx context.Context, name string) ([]Branch, error)
	SearchBranches(ctx context.Context, fragment string) ([]Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
}

// Match is the outcome of a resolution. A nil Branch is a miss.
type Match struct {
	Branch *Branch
	Tier   MatchTier
}

// Found reports whether the resolution produced a branch.
func (m Match) Found() bool { return m.Branch != nil }

// BranchResolver resolves source names to stored branches.
type BranchResolver struct {
	Finder BranchFinder

	// MaxTier is the loosest tier tried. Zero means every tier.
	MaxTier MatchTier
}

// Resolve runs the cascade for name. A miss is not an error.
func (r *BranchResolver) Resolve(ctx context.Context, name string) (Match, error) {
	identity := BranchIdentity(name)
	if identity == "" {
		return Match{}, nil
	}

	maxTier := r.MaxTier
	if maxTier == TierNone {
		maxTier = TierFirstToken
	}

	steps := []struct {
		tier MatchTier
		find func() ([]Branch, error)
	}{
		{TierExact, func() ([]Branch, error) { return r.exact(ctx, identity) }},
		{TierFold, func() ([]Branch, error) { return r.Finder.FindBranchesByNameFold(ctx, identity) }},
		{TierContains, func() ([]Branch, error) { return r.contains(ctx, identity) }},
		{TierFirstToken, func() ([]Branch, error) { return r.firstToken(ctx, identity) }},
	}

	for _, step := range steps {
		if step.tier > maxTier {
			break
		}
		found, err := step.find()
		if err != nil {
			return Match{}, fmt.Errorf("resolve branch %q (%s): %w", identity, step.tier, err)
		}
		if b := smallestName(found); b != nil {
			return Match{Branch: b, Tier: step.tier}, nil
		}
	}
	return Match{}, nil
}

func (r *BranchResolver) exact(ctx context.Context, identity string) ([]Branch, error) {
	b, err := r.Finder.FindBranchByName(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Branch{*b}, nil
}

// contains matches in both directions: the candidate inside a stored name,
// or a stored name inside the candidate.
func (r *BranchResolver) contains(ctx context.Context, identity string) ([]Branch, error) {
	found, err := r.Finder.SearchBranches(ctx, identity)
	if err != nil {
		return nil, err
	}
	all, err := r.Finder.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(identity)
	for _, b := range all {
		if b.Name != "" && strings.Contains(lower, strings.ToLower(b.Name)) {
			found = append(found, b)
		}
	}
	return found, nil
}

func (r *BranchResolver) firstToken(ctx context.Context, identity string) ([]Branch, error) {
	fields := strings.Fields(identity)
	if len(fields) == 0 {
		return nil, nil
	}
	return r.Finder.SearchBranches(ctx, fields[0])
}

func smallestName(bs []Branch) *Branch {
	if len(bs) == 0 {
		return nil
	}
	best := bs[0]
	for _, b := range bs[1:] {
		if b.Name < best.Name {
			best = b
		}
	}
	return &best
}

// Suggestion is a near miss offered alongside an unresolved name.
type Suggestion struct {
	Name     string
	Distance int
}

// Suggest returns up to limit stored branch names closest to name by edit
// distance, ignoring case. Names further than half the candidate's length
// are not offered.
func (r *BranchResolver) Suggest(ctx context.Context, name string, limit int) ([]Suggestion, error) {
	identity := strings.ToLower(BranchIdentity(name))
	if identity == "" || limit <= 0 {
		return nil, nil
	}
	all, err := r.Finder.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest branch %q: %w", name, err)
	}

	maxDistance := max(len([]rune(identity))/2, 1)
	var out []Suggestion
	for _, b := range all {
		d := levenshtein.DistanceForStrings([]rune(identity), []rune(strings.ToLower(b.Name)), levenshtein.DefaultOptions)
		if d <= maxDistance {
			out = append(out, Suggestion{Name: b.Name, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
