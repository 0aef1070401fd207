package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write would break a uniqueness rule
	// (branch name, ATM TID, contact per branch).
	ErrConflict = errors.New("violates unique constraint")

	// ErrTxAborted marks a failure to create, roll back to or release a
	// savepoint. The enclosing transaction can no longer be trusted.
	ErrTxAborted = errors.New("transaction aborted")
)

// Repository is what the import pipeline needs from the inventory store.
// Create methods fill in generated IDs and timestamps on the passed value.
type Repository interface {
	EnsureRegion(ctx context.Context, name string, code pgtype.Text) (*Region, error)
	EnsureDistrict(ctx context.Context, name string, regionID int64) (*District, error)
	FindDistrict(ctx context.Context, name string) (*District, error)

	FindBranchByName(ctx context.Context, name string) (*Branch, error)
	FindBranchesByNameFold(ctx context.Context, name string) ([]Branch, error)
	// SearchBranches returns branches whose name contains fragment, ignoring case.
	SearchBranches(ctx context.Context, fragment string) ([]Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	CreateBranch(ctx context.Context, b *Branch) error
	UpdateBranch(ctx context.Context, b *Branch) error

	FindContact(ctx context.Context, branchID uuid.UUID, fullName string) (*ContactPerson, error)
	CreateContact(ctx context.Context, c *ContactPerson) error

	FindATMByTID(ctx context.Context, tid string) (*ATM, error)
	// FindATMByIP returns the lowest-ID ATM with the given address.
	FindATMByIP(ctx context.Context, ip string) (*ATM, error)
	ListATMs(ctx context.Context) ([]ATM, error)
	CreateATM(ctx context.Context, a *ATM) error
	UpdateATM(ctx context.Context, a *ATM) error

	// DeleteInventory removes all branches, contacts and ATMs. The region
	// and district taxonomy is kept.
	DeleteInventory(ctx context.Context) error
	Counts(ctx context.Context) (Counts, error)
}

// Tx is a Repository bound to an open transaction.
type Tx interface {
	Repository
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// Store is a Repository that can also open transactions. InTx commits when
// fn returns nil and rolls back otherwise.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// WithSavepoint runs fn under a savepoint. A failing fn is undone back to the
// savepoint and its error returned; the enclosing transaction stays usable.
// Failures of the savepoint statements themselves wrap ErrTxAborted.
func WithSavepoint(ctx context.Context, tx Tx, name string, fn func() error) error {
	if err := tx.Savepoint(ctx, name); err != nil {
		return fmt.Errorf("savepoint %s: %w: %w", name, ErrTxAborted, err)
	}
	if err := fn(); err != nil {
		if rbErr := tx.RollbackTo(ctx, name); rbErr != nil {
			return fmt.Errorf("rollback to %s: %w: %v (original error: %w)", name, ErrTxAborted, rbErr, err)
		}
		if relErr := tx.Release(ctx, name); relErr != nil {
			return fmt.Errorf("release %s: %w: %v (original error: %w)", name, ErrTxAborted, relErr, err)
		}
		return err
	}
	if err := tx.Release(ctx, name); err != nil {
		return fmt.Errorf("release %s: %w: %w", name, ErrTxAborted, err)
	}
	return nil
}
