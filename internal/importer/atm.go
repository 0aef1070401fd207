package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// maxPlaceholderAttempts bounds how often a colliding placeholder TID is
// regenerated.
const maxPlaceholderAttempts = 5

// placeholderSuffix returns the random part of an AUTO- TID.
var placeholderSuffix = func() string {
	return uuid.NewString()[:8]
}

// upsertATM merges patch into the ATM with the given TID, or creates it.
// A new ATM without a name in patch is named name, when given.
func (r *run) upsertATM(ctx context.Context, pr *PhaseResult, tid string, patch core.ATMPatch, name pgtype.Text) (*core.ATM, error) {
	a, err := r.tx.FindATMByTID(ctx, tid)
	switch {
	case err == nil:
		if !patch.Apply(a) {
			pr.Unchanged++
			return a, nil
		}
		if err := r.tx.UpdateATM(ctx, a); err != nil {
			return nil, fmt.Errorf("update atm %s: %w", tid, err)
		}
		pr.Updated++
		return a, nil

	case errors.Is(err, core.ErrNotFound):
		if !patch.Name.Valid {
			patch.Name = name
		}
		a = patch.NewATM(tid)
		if err := r.tx.CreateATM(ctx, a); err != nil {
			return nil, fmt.Errorf("create atm %s: %w", tid, err)
		}
		pr.Created++
		return a, nil

	default:
		return nil, fmt.Errorf("find atm %s: %w", tid, err)
	}
}

// siteATM handles the ATM side of a supplementary row. A row with a TID is
// upserted by TID. Without one, the ATM IP is looked up: a known ATM is linked
// to the branch if it has none, an unknown one is created under a placeholder
// TID. Rows with neither leave ATMs alone.
func (r *run) siteATM(ctx context.Context, pr *PhaseResult, src source, b *core.Branch, site pgtype.Text) error {
	tid := core.NormalizeIdentifierValue(src.row.Lookup(colTID...))
	ip := src.row.Lookup(colSiteATMIP...)
	patch := core.ATMPatch{BranchID: &b.ID, IPAddress: ip}

	if tid.Valid {
		_, err := r.upsertATM(ctx, pr, tid.String, patch, site)
		return err
	}
	if !ip.Valid {
		return nil
	}

	a, err := r.tx.FindATMByIP(ctx, ip.String)
	if err == nil {
		if a.BranchID != nil {
			pr.Unchanged++
			return nil
		}
		a.BranchID = &b.ID
		if err := r.tx.UpdateATM(ctx, a); err != nil {
			return fmt.Errorf("link atm %s: %w", a.TID, err)
		}
		pr.Updated++
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("find atm by ip %s: %w", ip.String, err)
	}

	patch.Name = site
	patch.SerialNumber = src.row.Lookup(colSiteSerial...)
	a, err = r.createPlaceholderATM(ctx, patch)
	if err != nil {
		return err
	}
	pr.Created++
	pr.warnf("%s: no TID for ATM at %s, created %s", src, ip.String, a.TID)
	return nil
}

// createPlaceholderATM creates an ATM under a synthetic TID: AUTO-SN-<serial>
// when the serial number is known, AUTO-<8 hex> otherwise. A TID that is
// already taken is replaced by a random one, a bounded number of times. Each
// attempt runs under its own savepoint so a rejected insert does not poison
// the transaction.
func (r *run) createPlaceholderATM(ctx context.Context, patch core.ATMPatch) (*core.ATM, error) {
	tid := "AUTO-" + placeholderSuffix()
	if patch.SerialNumber.Valid {
		tid = "AUTO-SN-" + patch.SerialNumber.String
	}

	for attempt := 1; ; attempt++ {
		a := patch.NewATM(tid)
		err := core.WithSavepoint(ctx, r.tx, "placeholder_atm", func() error {
			return r.tx.CreateATM(ctx, a)
		})
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrTxAborted) {
			return nil, fmt.Errorf("create atm %s: %w", tid, err)
		}
		if attempt == maxPlaceholderAttempts {
			return nil, fmt.Errorf("create placeholder atm: %d identifiers taken, last %s: %w", attempt, tid, err)
		}
		r.logger.Debug("placeholder tid taken, retrying", "tid", tid, "attempt", attempt)
		tid = "AUTO-" + placeholderSuffix()
	}
}
