package core

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// MergeText applies the import merge rule to a single field: a non-null
// incoming value replaces whatever is stored, a null one changes nothing.
// It reports whether dst changed.
func MergeText(dst *pgtype.Text, in pgtype.Text) bool {
	if !in.Valid {
		return false
	}
	if dst.Valid && dst.String == in.String {
		return false
	}
	*dst = in
	return true
}

// BranchPatch carries the branch fields read from one source row.
type BranchPatch struct {
	ConnectionType pgtype.Text
	ServiceNumber  pgtype.Text
	AccountNumber  pgtype.Text
	WANAddress     pgtype.Text
	LANAddress     pgtype.Text
	DefaultGateway pgtype.Text
	HostName       pgtype.Text
	VSATIP         pgtype.Text

	// Tunnels, when non-nil, replaces every tunnel slot: slot i takes
	// Tunnels[i] and slots past the end become null.
	Tunnels []pgtype.Text
}

// Apply merges p into b and reports whether anything changed.
func (p BranchPatch) Apply(b *Branch) bool {
	changed := false
	for _, f := range []struct {
		dst *pgtype.Text
		in  pgtype.Text
	}{
		{&b.ConnectionType, p.ConnectionType},
		{&b.ServiceNumber, p.ServiceNumber},
		{&b.AccountNumber, p.AccountNumber},
		{&b.WANAddress, p.WANAddress},
		{&b.LANAddress, p.LANAddress},
		{&b.DefaultGateway, p.DefaultGateway},
		{&b.HostName, p.HostName},
		{&b.VSATIP, p.VSATIP},
	} {
		if MergeText(f.dst, f.in) {
			changed = true
		}
	}

	if p.Tunnels != nil {
		for i := range b.Tunnels {
			var next pgtype.Text
			if i < len(p.Tunnels) {
				next = p.Tunnels[i]
			}
			if b.Tunnels[i] != next {
				b.Tunnels[i] = next
				changed = true
			}
		}
	}
	return changed
}

// ATMPatch carries the ATM fields read from one source row.
type ATMPatch struct {
	BranchID                    *uuid.UUID
	Name                        pgtype.Text
	IPAddress                   pgtype.Text
	Port                        pgtype.Text
	LocationType                pgtype.Text
	Brand                       pgtype.Text
	DispenserType               pgtype.Text
	ATMType                     pgtype.Text
	SerialNumber                pgtype.Text
	TagNumber                   pgtype.Text
	DeploymentStatus            pgtype.Text
	PlacementType               pgtype.Text
	ServiceNumber               pgtype.Text
	ConnectionType              pgtype.Text
	ReserveCassetteAvailability pgtype.Text
	ReserveCassetteQuantity     pgtype.Text
}

// Apply merges p into a and reports whether anything changed.
func (p ATMPatch) Apply(a *ATM) bool {
	changed := false
	if p.BranchID != nil && (a.BranchID == nil || *a.BranchID != *p.BranchID) {
		id := *p.BranchID
		a.BranchID = &id
		changed = true
	}
	for _, f := range []struct {
		dst *string
		in  pgtype.Text
	}{
		{&a.Name, p.Name},
		{&a.Brand, p.Brand},
		{&a.DeploymentStatus, p.DeploymentStatus},
	} {
		if f.in.Valid && *f.dst != f.in.String {
			*f.dst = f.in.String
			changed = true
		}
	}
	for _, f := range []struct {
		dst *pgtype.Text
		in  pgtype.Text
	}{
		{&a.IPAddress, p.IPAddress},
		{&a.Port, p.Port},
		{&a.LocationType, p.LocationType},
		{&a.DispenserType, p.DispenserType},
		{&a.ATMType, p.ATMType},
		{&a.SerialNumber, p.SerialNumber},
		{&a.TagNumber, p.TagNumber},
		{&a.PlacementType, p.PlacementType},
		{&a.ServiceNumber, p.ServiceNumber},
		{&a.ConnectionType, p.ConnectionType},
		{&a.ReserveCassetteAvailability, p.ReserveCassetteAvailability},
		{&a.ReserveCassetteQuantity, p.ReserveCassetteQuantity},
	} {
		if MergeText(f.dst, f.in) {
			changed = true
		}
	}
	return changed
}

// NewATM builds an ATM for tid from p, filling the creation defaults:
// brand NCR, status DEPLOYED and the name "ATM <tid>".
func (p ATMPatch) NewATM(tid string) *ATM {
	a := &ATM{
		TID:              tid,
		Name:             "ATM " + tid,
		Brand:            DefaultATMBrand,
		DeploymentStatus: DefaultATMStatus,
	}
	p.Apply(a)
	return a
}
