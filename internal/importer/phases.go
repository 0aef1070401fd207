package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// setup ensures the region and district baseline and picks the district that
// receives newly created branches.
func (r *run) setup(ctx context.Context, pr *PhaseResult) error {
	tax := r.Taxonomy
	if tax.RegionName == "" {
		return errors.New("taxonomy has no region name")
	}

	region, err := r.tx.EnsureRegion(ctx, tax.RegionName, core.ToPgText(tax.RegionCode))
	if err != nil {
		return fmt.Errorf("ensure region %q: %w", tax.RegionName, err)
	}
	for _, name := range tax.Districts {
		if _, err := r.tx.EnsureDistrict(ctx, name, region.ID); err != nil {
			return fmt.Errorf("ensure district %q: %w", name, err)
		}
	}

	if tax.DefaultDistrict != "" {
		d, err := r.tx.EnsureDistrict(ctx, tax.DefaultDistrict, region.ID)
		if err != nil {
			return fmt.Errorf("ensure district %q: %w", tax.DefaultDistrict, err)
		}
		r.district = &d.ID
	}
	return nil
}

func (r *run) clean(ctx context.Context, pr *PhaseResult) error {
	before, err := r.tx.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count inventory: %w", err)
	}
	if err := r.tx.DeleteInventory(ctx); err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	r.logger.Info("inventory cleared",
		"branches", before.Branches,
		"contacts", before.Contacts,
		"atms", before.ATMs,
	)
	return nil
}

func (r *run) importBranches(ctx context.Context, pr *PhaseResult) error {
	policy := r.Policies.Branches
	resolver := &core.BranchResolver{Finder: r.tx, MaxTier: policy.MaxTier}

	return r.eachRow(ctx, pr, core.KindBranch, r.Sources.Branches, func(ctx context.Context, pr *PhaseResult, src source) (journalEntry, error) {
		name := src.row.Lookup(colBranchName...)
		if !name.Valid {
			pr.Skipped++
			return journalEntry{}, nil
		}

		patch := branchPatch(src.row)
		b, err := r.branch(ctx, pr, resolver, policy, src, name.String, &patch)
		if err != nil {
			return journalEntry{}, err
		}
		if b == nil {
			pr.Skipped++
			return journalEntry{}, nil
		}
		return branchEntry(b), nil
	})
}

func branchPatch(row core.Row) core.BranchPatch {
	return core.BranchPatch{
		ConnectionType: core.NormalizeConnectionType(row.Lookup(colConnectionType...)),
		ServiceNumber:  row.Lookup(colServiceNumber...),
		AccountNumber:  row.Lookup(colAccountNumber...),
		WANAddress:     row.Lookup(colWANAddress...),
		LANAddress:     row.Lookup(colLANAddress...),
		DefaultGateway: row.Lookup(colDefaultGateway...),
		HostName:       row.Lookup(colHostName...),
		VSATIP:         row.Lookup(colVSATIP...),
		Tunnels:        CollectTunnels(row),
	}
}

func (r *run) importContacts(ctx context.Context, pr *PhaseResult) error {
	policy := r.Policies.Contacts
	resolver := &core.BranchResolver{Finder: r.tx, MaxTier: policy.MaxTier}

	return r.eachRow(ctx, pr, core.KindContact, r.Sources.Contacts, func(ctx context.Context, pr *PhaseResult, src source) (journalEntry, error) {
		branchName := src.row.Lookup(colBranchName...)
		fullName := src.row.Lookup(colContactName...)
		if !branchName.Valid || !fullName.Valid {
			pr.Skipped++
			return journalEntry{}, nil
		}

		b, err := r.branch(ctx, pr, resolver, policy, src, branchName.String, nil)
		if err != nil {
			return journalEntry{}, err
		}
		if b == nil {
			pr.Skipped++
			return journalEntry{}, nil
		}

		existing, err := r.tx.FindContact(ctx, b.ID, fullName.String)
		if err == nil {
			// First write wins: known contacts are never updated.
			pr.Unchanged++
			return contactEntry(existing), nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return journalEntry{}, fmt.Errorf("find contact %q: %w", fullName.String, err)
		}

		c := &core.ContactPerson{
			BranchID:         b.ID,
			FullName:         fullName.String,
			Role:             src.row.Lookup(colContactRole...),
			Phone:            src.row.Lookup(colContactPhone...),
			AlternativePhone: src.row.Lookup(colContactAltPhone...),
			Email:            src.row.Lookup(colContactEmail...),
			Department:       src.row.Lookup(colContactDepartment...),
		}
		if err := r.tx.CreateContact(ctx, c); err != nil {
			return journalEntry{}, fmt.Errorf("create contact %q: %w", c.FullName, err)
		}
		pr.Created++
		return contactEntry(c), nil
	})
}

func (r *run) importATMs(ctx context.Context, pr *PhaseResult) error {
	policy := r.Policies.ATMs
	resolver := &core.BranchResolver{Finder: r.tx, MaxTier: policy.MaxTier}

	return r.eachRow(ctx, pr, core.KindATM, r.Sources.ATMs, func(ctx context.Context, pr *PhaseResult, src source) (journalEntry, error) {
		tid := core.NormalizeIdentifierValue(src.row.Lookup(colTID...))
		if !tid.Valid {
			pr.Skipped++
			return journalEntry{}, nil
		}

		patch := atmPatch(src.row)
		if name := src.row.Lookup(colATMBranch...); name.Valid {
			b, err := r.branch(ctx, pr, resolver, policy, src, name.String, nil)
			if err != nil {
				return journalEntry{}, err
			}
			if b != nil {
				patch.BranchID = &b.ID
			}
		}

		a, err := r.upsertATM(ctx, pr, tid.String, patch, pgtype.Text{})
		if err != nil {
			return journalEntry{}, err
		}
		return atmEntry(a), nil
	})
}

func atmPatch(row core.Row) core.ATMPatch {
	return core.ATMPatch{
		Name:                        row.Lookup(colATMName...),
		IPAddress:                   row.Lookup(colATMIP...),
		Port:                        row.Lookup(colATMPort...),
		LocationType:                core.NormalizeEnum(row.Lookup(colATMLocationType...), core.LocationTypes, core.LocationOther),
		Brand:                       row.Lookup(colATMBrand...),
		DispenserType:               row.Lookup(colATMDispenserType...),
		ATMType:                     row.Lookup(colATMType...),
		SerialNumber:                row.Lookup(colATMSerialNumber...),
		TagNumber:                   row.Lookup(colATMTagNumber...),
		DeploymentStatus:            core.NormalizeEnum(row.Lookup(colATMDeploymentStatus...), core.DeploymentStatuses, ""),
		PlacementType:               row.Lookup(colATMPlacementType...),
		ServiceNumber:               row.Lookup(colATMServiceNumber...),
		ConnectionType:              core.NormalizeConnectionType(row.Lookup(colATMConnectionType...)),
		ReserveCassetteAvailability: row.Lookup(colATMReserveAvail...),
		ReserveCassetteQuantity:     row.Lookup(colATMReserveQuantity...),
	}
}

// importSupplementary merges the network export into branches and links or
// creates the ATMs it mentions.
func (r *run) importSupplementary(ctx context.Context, pr *PhaseResult) error {
	policy := r.Policies.Supplementary
	resolver := &core.BranchResolver{Finder: r.tx, MaxTier: policy.MaxTier}

	return r.eachRow(ctx, pr, core.KindBranch, r.Sources.Supplementary, func(ctx context.Context, pr *PhaseResult, src source) (journalEntry, error) {
		site := src.row.Lookup(colSiteName...)
		if !site.Valid {
			pr.Skipped++
			return journalEntry{}, nil
		}

		patch := core.BranchPatch{
			ConnectionType: core.NormalizeConnectionType(src.row.Lookup(colConnectionType...)),
			ServiceNumber:  src.row.Lookup(colServiceNumber...),
			AccountNumber:  src.row.Lookup(colSiteAccountNumber...),
			WANAddress:     src.row.Lookup(colSiteWANAddress...),
			LANAddress:     src.row.Lookup(colSiteLANAddress...),
			DefaultGateway: src.row.Lookup(colSiteGateway...),
			Tunnels:        CollectTunnels(src.row),
		}
		b, err := r.branch(ctx, pr, resolver, policy, src, site.String, &patch)
		if err != nil {
			return journalEntry{}, err
		}
		if b == nil {
			pr.Skipped++
			return journalEntry{}, nil
		}

		if err := r.siteATM(ctx, pr, src, b, site); err != nil {
			return journalEntry{}, err
		}
		return branchEntry(b), nil
	})
}

// branch resolves name to a branch under policy. When patch is non-nil it is
// merged into a found branch or used to build a new one, and the outcome is
// counted. A nil branch with a nil error is a miss the policy chose to skip;
// it has been warned about but not counted.
func (r *run) branch(ctx context.Context, pr *PhaseResult, resolver *core.BranchResolver, policy PhasePolicy, src source, name string, patch *core.BranchPatch) (*core.Branch, error) {
	m, err := resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if m.Found() {
		b := m.Branch
		if patch == nil {
			return b, nil
		}
		if !patch.Apply(b) {
			pr.Unchanged++
			return b, nil
		}
		if err := r.tx.UpdateBranch(ctx, b); err != nil {
			return nil, fmt.Errorf("update branch %q: %w", b.Name, err)
		}
		pr.Updated++
		return b, nil
	}

	if policy.OnMiss != MissCreate {
		pr.warnf("%s: branch %q not found%s", src, name, r.suggestion(ctx, resolver, name))
		return nil, nil
	}

	b := &core.Branch{Name: core.BranchIdentity(name), DistrictID: r.district}
	if patch != nil {
		patch.Apply(b)
	}
	if err := r.tx.CreateBranch(ctx, b); err != nil {
		return nil, fmt.Errorf("create branch %q: %w", b.Name, err)
	}
	pr.Created++
	return b, nil
}

// suggestion formats the closest known branch name for a miss warning.
func (r *run) suggestion(ctx context.Context, resolver *core.BranchResolver, name string) string {
	s, err := resolver.Suggest(ctx, name, 1)
	if err != nil || len(s) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", s[0].Name)
}
