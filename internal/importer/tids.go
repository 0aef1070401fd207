package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// TIDReport summarizes a NormalizeStoredTIDs pass.
type TIDReport struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
}

// NormalizeStoredTIDs rewrites stored ATM TIDs into normalized form, for data
// written before identifiers were normalized on import. When the normalized
// TID already belongs to another ATM the first free "<tid>-N" is used
// instead and counted as a conflict. All changes commit together.
func NormalizeStoredTIDs(ctx context.Context, store core.Store, logger *slog.Logger) (*TIDReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := &TIDReport{}

	err := store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		*report = TIDReport{}
		atms, err := tx.ListATMs(ctx)
		if err != nil {
			return fmt.Errorf("list atms: %w", err)
		}

		for i := range atms {
			a := &atms[i]
			report.Checked++

			norm := core.NormalizeIdentifier(a.TID)
			if !norm.Valid || norm.String == a.TID {
				continue
			}

			tid, conflict, err := freeTID(ctx, tx, norm.String, a.ID)
			if err != nil {
				return err
			}
			if conflict {
				report.Conflicts++
			}

			logger.Debug("normalizing tid", "atm_id", a.ID, "from", a.TID, "to", tid)
			a.TID = tid
			if err := tx.UpdateATM(ctx, a); err != nil {
				return fmt.Errorf("update atm %d: %w", a.ID, err)
			}
			report.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("tid normalization completed",
		"checked", report.Checked,
		"updated", report.Updated,
		"conflicts", report.Conflicts,
	)
	return report, nil
}

// freeTID returns tid if no other ATM holds it, else the first free
// "<tid>-N" and true.
func freeTID(ctx context.Context, tx core.Tx, tid string, self int64) (string, bool, error) {
	taken := func(candidate string) (bool, error) {
		other, err := tx.FindATMByTID(ctx, candidate)
		switch {
		case errors.Is(err, core.ErrNotFound):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("find atm %s: %w", candidate, err)
		}
		return other.ID != self, nil
	}

	ok, err := taken(tid)
	if err != nil || !ok {
		return tid, false, err
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", tid, n)
		ok, err := taken(candidate)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return candidate, true, nil
		}
	}
}
