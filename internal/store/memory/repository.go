package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// Outside a transaction every call runs on the shared data directly.

func (s *Store) EnsureRegion(ctx context.Context, name string, code pgtype.Text) (out *core.Region, err error) {
	err = s.write(func(r *repo) error { out, err = r.EnsureRegion(ctx, name, code); return err })
	return out, err
}

func (s *Store) EnsureDistrict(ctx context.Context, name string, regionID int64) (out *core.District, err error) {
	err = s.write(func(r *repo) error { out, err = r.EnsureDistrict(ctx, name, regionID); return err })
	return out, err
}

func (s *Store) FindDistrict(ctx context.Context, name string) (out *core.District, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindDistrict(ctx, name); return err })
	return out, err
}

func (s *Store) FindBranchByName(ctx context.Context, name string) (out *core.Branch, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindBranchByName(ctx, name); return err })
	return out, err
}

func (s *Store) FindBranchesByNameFold(ctx context.Context, name string) (out []core.Branch, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindBranchesByNameFold(ctx, name); return err })
	return out, err
}

func (s *Store) SearchBranches(ctx context.Context, fragment string) (out []core.Branch, err error) {
	err = s.read(func(r *repo) error { out, err = r.SearchBranches(ctx, fragment); return err })
	return out, err
}

func (s *Store) ListBranches(ctx context.Context) (out []core.Branch, err error) {
	err = s.read(func(r *repo) error { out, err = r.ListBranches(ctx); return err })
	return out, err
}

func (s *Store) CreateBranch(ctx context.Context, b *core.Branch) error {
	return s.write(func(r *repo) error { return r.CreateBranch(ctx, b) })
}

func (s *Store) UpdateBranch(ctx context.Context, b *core.Branch) error {
	return s.write(func(r *repo) error { return r.UpdateBranch(ctx, b) })
}

func (s *Store) FindContact(ctx context.Context, branchID uuid.UUID, fullName string) (out *core.ContactPerson, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindContact(ctx, branchID, fullName); return err })
	return out, err
}

func (s *Store) CreateContact(ctx context.Context, c *core.ContactPerson) error {
	return s.write(func(r *repo) error { return r.CreateContact(ctx, c) })
}

func (s *Store) FindATMByTID(ctx context.Context, tid string) (out *core.ATM, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindATMByTID(ctx, tid); return err })
	return out, err
}

func (s *Store) FindATMByIP(ctx context.Context, ip string) (out *core.ATM, err error) {
	err = s.read(func(r *repo) error { out, err = r.FindATMByIP(ctx, ip); return err })
	return out, err
}

func (s *Store) ListATMs(ctx context.Context) (out []core.ATM, err error) {
	err = s.read(func(r *repo) error { out, err = r.ListATMs(ctx); return err })
	return out, err
}

func (s *Store) CreateATM(ctx context.Context, a *core.ATM) error {
	return s.write(func(r *repo) error { return r.CreateATM(ctx, a) })
}

func (s *Store) UpdateATM(ctx context.Context, a *core.ATM) error {
	return s.write(func(r *repo) error { return r.UpdateATM(ctx, a) })
}

func (s *Store) DeleteInventory(ctx context.Context) error {
	return s.write(func(r *repo) error { return r.DeleteInventory(ctx) })
}

func (s *Store) Counts(ctx context.Context) (out core.Counts, err error) {
	err = s.read(func(r *repo) error { out, err = r.Counts(ctx); return err })
	return out, err
}
