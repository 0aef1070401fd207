package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

const (
	regionTable   = "regions"
	districtTable = "districts"
	branchTable   = "branches"
	contactTable  = "contact_persons"
	atmTable      = "atms"
)

// byName sorts by code point so ordering matches Go string comparison.
const byName = `name COLLATE "C"`

var (
	branchColumns = append([]string{
		"id", "name", "district_id", "connection_type", "service_number",
		"account_number", "wan_address", "lan_address", "default_gateway",
		"host_name", "vsat_ip",
	}, append(tunnelColumns(), "created_at", "updated_at")...)

	contactColumns = []string{
		"id", "branch_id", "full_name", "role", "phone",
		"alternative_phone", "email", "department",
	}

	atmColumns = []string{
		"id", "tid", "branch_id", "name", "ip_address", "port", "location_type",
		"brand", "dispenser_type", "atm_type", "serial_number", "tag_number",
		"deployment_status", "placement_type", "service_number",
		"connection_type", "reserve_cassette_availability",
		"reserve_cassette_quantity", "created_at", "updated_at",
	}
)

func tunnelColumns() []string {
	cols := make([]string, core.TunnelSlots)
	for i := range cols {
		cols[i] = fmt.Sprintf("tunnel_%d", i+1)
	}
	return cols
}

// repo implements core.Repository over a pool or a transaction.
type repo struct {
	db dbtx
}

func (r repo) EnsureRegion(ctx context.Context, name string, code pgtype.Text) (*core.Region, error) {
	query, args, err := psql.Insert(regionTable).
		Columns("name", "code").
		Values(name, code).
		Suffix("ON CONFLICT (name) DO UPDATE SET code = COALESCE(regions.code, EXCLUDED.code) RETURNING id, name, code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build region upsert: %w", err)
	}

	var reg core.Region
	if err := r.db.QueryRow(ctx, query, args...).Scan(&reg.ID, &reg.Name, &reg.Code); err != nil {
		return nil, mapError(err, fmt.Sprintf("region %q", name))
	}
	return &reg, nil
}

func (r repo) EnsureDistrict(ctx context.Context, name string, regionID int64) (*core.District, error) {
	d, err := r.FindDistrict(ctx, name)
	if err == nil {
		return d, nil
	}

	query, args, err := psql.Insert(districtTable).
		Columns("name", "region_id").
		Values(name, regionID).
		Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id, name, region_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build district insert: %w", err)
	}

	var out core.District
	if err := r.db.QueryRow(ctx, query, args...).Scan(&out.ID, &out.Name, &out.RegionID); err != nil {
		return nil, mapError(err, fmt.Sprintf("district %q", name))
	}
	return &out, nil
}

func (r repo) FindDistrict(ctx context.Context, name string) (*core.District, error) {
	query, args, err := psql.Select("id", "name", "region_id").
		From(districtTable).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build district query: %w", err)
	}

	var d core.District
	if err := r.db.QueryRow(ctx, query, args...).Scan(&d.ID, &d.Name, &d.RegionID); err != nil {
		return nil, mapError(err, fmt.Sprintf("district %q", name))
	}
	return &d, nil
}

// Branches

func scanBranch(row pgx.Row) (*core.Branch, error) {
	var b core.Branch
	dest := []any{
		&b.ID, &b.Name, &b.DistrictID, &b.ConnectionType, &b.ServiceNumber,
		&b.AccountNumber, &b.WANAddress, &b.LANAddress, &b.DefaultGateway,
		&b.HostName, &b.VSATIP,
	}
	for i := range b.Tunnels {
		dest = append(dest, &b.Tunnels[i])
	}
	dest = append(dest, &b.CreatedAt, &b.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

func branchValues(b *core.Branch) []any {
	vals := []any{
		b.ID, b.Name, b.DistrictID, b.ConnectionType, b.ServiceNumber,
		b.AccountNumber, b.WANAddress, b.LANAddress, b.DefaultGateway,
		b.HostName, b.VSATIP,
	}
	for _, t := range b.Tunnels {
		vals = append(vals, t)
	}
	return append(vals, b.CreatedAt, b.UpdatedAt)
}

func (r repo) findBranch(ctx context.Context, what string, where sq.Sqlizer) (*core.Branch, error) {
	query, args, err := psql.Select(branchColumns...).From(branchTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build branch query: %w", err)
	}
	b, err := scanBranch(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, what)
	}
	return b, nil
}

func (r repo) listBranches(ctx context.Context, where sq.Sqlizer) ([]core.Branch, error) {
	q := psql.Select(branchColumns...).From(branchTable).OrderBy(byName)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build branch list: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list branches")
	}
	defer rows.Close()

	var out []core.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, mapError(err, "scan branch")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list branches")
	}
	return out, nil
}

func (r repo) FindBranchByName(ctx context.Context, name string) (*core.Branch, error) {
	return r.findBranch(ctx, fmt.Sprintf("branch %q", name), sq.Eq{"name": name})
}

func (r repo) FindBranchesByNameFold(ctx context.Context, name string) ([]core.Branch, error) {
	return r.listBranches(ctx, sq.Expr("lower(name) = lower(?)", name))
}

func (r repo) SearchBranches(ctx context.Context, fragment string) ([]core.Branch, error) {
	return r.listBranches(ctx, sq.Expr("strpos(lower(name), lower(?)) > 0", fragment))
}

func (r repo) ListBranches(ctx context.Context) ([]core.Branch, error) {
	return r.listBranches(ctx, nil)
}

func (r repo) CreateBranch(ctx context.Context, b *core.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	query, args, err := psql.Insert(branchTable).
		Columns(branchColumns...).
		Values(branchValues(b)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build branch insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return mapError(err, fmt.Sprintf("create branch %q", b.Name))
	}
	return nil
}

func (r repo) UpdateBranch(ctx context.Context, b *core.Branch) error {
	b.UpdatedAt = time.Now().UTC()

	vals := branchValues(b)
	set := make(map[string]any, len(branchColumns))
	for i, col := range branchColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	query, args, err := psql.Update(branchTable).
		SetMap(set).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build branch update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, fmt.Sprintf("update branch %q", b.Name))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("branch %s: %w", b.ID, core.ErrNotFound)
	}
	return nil
}

// Contacts

func (r repo) FindContact(ctx context.Context, branchID uuid.UUID, fullName string) (*core.ContactPerson, error) {
	query, args, err := psql.Select(contactColumns...).
		From(contactTable).
		Where(sq.Eq{"branch_id": branchID, "full_name": fullName}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}

	var c core.ContactPerson
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.BranchID, &c.FullName, &c.Role, &c.Phone,
		&c.AlternativePhone, &c.Email, &c.Department,
	)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("contact %q", fullName))
	}
	return &c, nil
}

func (r repo) CreateContact(ctx context.Context, c *core.ContactPerson) error {
	query, args, err := psql.Insert(contactTable).
		Columns(contactColumns[1:]...).
		Values(c.BranchID, c.FullName, c.Role, c.Phone, c.AlternativePhone, c.Email, c.Department).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return mapError(err, fmt.Sprintf("create contact %q", c.FullName))
	}
	return nil
}

// ATMs

func scanATM(row pgx.Row) (*core.ATM, error) {
	var a core.ATM
	err := row.Scan(
		&a.ID, &a.TID, &a.BranchID, &a.Name, &a.IPAddress, &a.Port, &a.LocationType,
		&a.Brand, &a.DispenserType, &a.ATMType, &a.SerialNumber, &a.TagNumber,
		&a.DeploymentStatus, &a.PlacementType, &a.ServiceNumber,
		&a.ConnectionType, &a.ReserveCassetteAvailability,
		&a.ReserveCassetteQuantity, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// atmValues matches atmColumns without id.
func atmValues(a *core.ATM) []any {
	return []any{
		a.TID, a.BranchID, a.Name, a.IPAddress, a.Port, a.LocationType,
		a.Brand, a.DispenserType, a.ATMType, a.SerialNumber, a.TagNumber,
		a.DeploymentStatus, a.PlacementType, a.ServiceNumber,
		a.ConnectionType, a.ReserveCassetteAvailability,
		a.ReserveCassetteQuantity, a.CreatedAt, a.UpdatedAt,
	}
}

func (r repo) findATM(ctx context.Context, what string, where sq.Sqlizer) (*core.ATM, error) {
	query, args, err := psql.Select(atmColumns...).
		From(atmTable).
		Where(where).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build atm query: %w", err)
	}
	a, err := scanATM(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, what)
	}
	return a, nil
}

func (r repo) FindATMByTID(ctx context.Context, tid string) (*core.ATM, error) {
	return r.findATM(ctx, fmt.Sprintf("atm %q", tid), sq.Eq{"tid": tid})
}

func (r repo) FindATMByIP(ctx context.Context, ip string) (*core.ATM, error) {
	return r.findATM(ctx, fmt.Sprintf("atm with ip %q", ip), sq.Eq{"ip_address": ip})
}

func (r repo) ListATMs(ctx context.Context) ([]core.ATM, error) {
	query, args, err := psql.Select(atmColumns...).From(atmTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build atm list: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list atms")
	}
	defer rows.Close()

	var out []core.ATM
	for rows.Next() {
		a, err := scanATM(rows)
		if err != nil {
			return nil, mapError(err, "scan atm")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list atms")
	}
	return out, nil
}

func (r repo) CreateATM(ctx context.Context, a *core.ATM) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	query, args, err := psql.Insert(atmTable).
		Columns(atmColumns[1:]...).
		Values(atmValues(a)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build atm insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID); err != nil {
		return mapError(err, fmt.Sprintf("create atm %q", a.TID))
	}
	return nil
}

func (r repo) UpdateATM(ctx context.Context, a *core.ATM) error {
	a.UpdatedAt = time.Now().UTC()

	vals := atmValues(a)
	set := make(map[string]any, len(vals))
	for i, col := range atmColumns[1:] {
		if col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	query, args, err := psql.Update(atmTable).
		SetMap(set).
		Where(sq.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build atm update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, fmt.Sprintf("update atm %q", a.TID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("atm %d: %w", a.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteInventory clears inventory tables, children first.
func (r repo) DeleteInventory(ctx context.Context) error {
	for _, table := range []string{contactTable, atmTable, branchTable} {
		query, args, err := psql.Delete(table).ToSql()
		if err != nil {
			return fmt.Errorf("build delete %s: %w", table, err)
		}
		if _, err := r.db.Exec(ctx, query, args...); err != nil {
			return mapError(err, "delete "+table)
		}
	}
	return nil
}

func (r repo) Counts(ctx context.Context) (core.Counts, error) {
	var c core.Counts
	targets := []struct {
		table string
		dest  *int
	}{
		{regionTable, &c.Regions},
		{districtTable, &c.Districts},
		{branchTable, &c.Branches},
		{contactTable, &c.Contacts},
		{atmTable, &c.ATMs},
	}
	for _, t := range targets {
		query, args, err := psql.Select("COUNT(*)").From(t.table).ToSql()
		if err != nil {
			return c, fmt.Errorf("build count %s: %w", t.table, err)
		}
		if err := r.db.QueryRow(ctx, query, args...).Scan(t.dest); err != nil {
			return c, mapError(err, "count "+t.table)
		}
	}
	return c, nil
}
