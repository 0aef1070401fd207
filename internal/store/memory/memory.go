// Package memory is an in-process inventory store. It backs dry-run imports
// and tests, and honours the same uniqueness rules as the Postgres schema.
//
// A transaction works on a private copy of the data that replaces the shared
// copy on commit. Savepoints are snapshots of the working copy.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

type data struct {
	regions   []core.Region
	districts []core.District
	branches  map[uuid.UUID]core.Branch
	contacts  []core.ContactPerson
	atms      map[int64]core.ATM

	nextRegion, nextDistrict, nextContact, nextATM int64
}

func newData() *data {
	return &data{
		branches: make(map[uuid.UUID]core.Branch),
		atms:     make(map[int64]core.ATM),
	}
}

func (d *data) clone() *data {
	c := &data{
		regions:      append([]core.Region(nil), d.regions...),
		districts:    append([]core.District(nil), d.districts...),
		branches:     make(map[uuid.UUID]core.Branch, len(d.branches)),
		contacts:     append([]core.ContactPerson(nil), d.contacts...),
		atms:         make(map[int64]core.ATM, len(d.atms)),
		nextRegion:   d.nextRegion,
		nextDistrict: d.nextDistrict,
		nextContact:  d.nextContact,
		nextATM:      d.nextATM,
	}
	for id, b := range d.branches {
		c.branches[id] = cloneBranch(b)
	}
	for id, a := range d.atms {
		c.atms[id] = cloneATM(a)
	}
	return c
}

func cloneBranch(b core.Branch) core.Branch {
	if b.DistrictID != nil {
		id := *b.DistrictID
		b.DistrictID = &id
	}
	return b
}

func cloneATM(a core.ATM) core.ATM {
	if a.BranchID != nil {
		id := *a.BranchID
		a.BranchID = &id
	}
	return a
}

// Store is a concurrency-safe in-memory core.Store. Transactions are
// serialized.
type Store struct {
	txMu sync.Mutex

	mu  sync.RWMutex
	d   *data
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{d: newData(), now: time.Now}
}

var _ core.Store = (*Store)(nil)

// InTx runs fn against a private copy of the data and publishes the copy if
// fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.d.clone()
	s.mu.RUnlock()

	tx := &Tx{repo: repo{d: work, now: s.now}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.d = tx.d
	s.mu.Unlock()
	return nil
}

// read runs fn with the shared data under the read lock.
func (s *Store) read(fn func(r *repo) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&repo{d: s.d, now: s.now})
}

// write runs fn with the shared data under the write lock.
func (s *Store) write(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{d: s.d, now: s.now})
}

// Tx is an open in-memory transaction.
type Tx struct {
	repo
	savepoints []savepoint
}

type savepoint struct {
	name string
	snap *data
}

var _ core.Tx = (*Tx)(nil)

func (t *Tx) Savepoint(_ context.Context, name string) error {
	t.savepoints = append(t.savepoints, savepoint{name: name, snap: t.d.clone()})
	return nil
}

func (t *Tx) RollbackTo(_ context.Context, name string) error {
	i, err := t.find(name)
	if err != nil {
		return err
	}
	t.d = t.savepoints[i].snap.clone()
	t.savepoints = t.savepoints[:i+1]
	return nil
}

func (t *Tx) Release(_ context.Context, name string) error {
	i, err := t.find(name)
	if err != nil {
		return err
	}
	t.savepoints = t.savepoints[:i]
	return nil
}

func (t *Tx) find(name string) (int, error) {
	for i := len(t.savepoints) - 1; i >= 0; i-- {
		if t.savepoints[i].name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("savepoint %q does not exist", name)
}

// repo implements core.Repository over one copy of the data. It does no
// locking of its own.
type repo struct {
	d   *data
	now func() time.Time
}

func (r *repo) EnsureRegion(_ context.Context, name string, code pgtype.Text) (*core.Region, error) {
	for i, reg := range r.d.regions {
		if reg.Name == name {
			if !reg.Code.Valid && code.Valid {
				r.d.regions[i].Code = code
			}
			out := r.d.regions[i]
			return &out, nil
		}
	}
	r.d.nextRegion++
	reg := core.Region{ID: r.d.nextRegion, Name: name, Code: code}
	r.d.regions = append(r.d.regions, reg)
	return &reg, nil
}

func (r *repo) EnsureDistrict(_ context.Context, name string, regionID int64) (*core.District, error) {
	for _, d := range r.d.districts {
		if d.Name == name {
			out := d
			return &out, nil
		}
	}
	r.d.nextDistrict++
	d := core.District{ID: r.d.nextDistrict, Name: name, RegionID: regionID}
	r.d.districts = append(r.d.districts, d)
	return &d, nil
}

func (r *repo) FindDistrict(_ context.Context, name string) (*core.District, error) {
	for _, d := range r.d.districts {
		if d.Name == name {
			out := d
			return &out, nil
		}
	}
	return nil, fmt.Errorf("district %q: %w", name, core.ErrNotFound)
}

func (r *repo) FindBranchByName(_ context.Context, name string) (*core.Branch, error) {
	for _, b := range r.d.branches {
		if b.Name == name {
			out := cloneBranch(b)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("branch %q: %w", name, core.ErrNotFound)
}

func (r *repo) FindBranchesByNameFold(_ context.Context, name string) ([]core.Branch, error) {
	return r.filterBranches(func(b core.Branch) bool { return strings.EqualFold(b.Name, name) }), nil
}

func (r *repo) SearchBranches(_ context.Context, fragment string) ([]core.Branch, error) {
	needle := strings.ToLower(fragment)
	return r.filterBranches(func(b core.Branch) bool {
		return strings.Contains(strings.ToLower(b.Name), needle)
	}), nil
}

func (r *repo) ListBranches(_ context.Context) ([]core.Branch, error) {
	return r.filterBranches(func(core.Branch) bool { return true }), nil
}

// filterBranches returns matching branches ordered by name.
func (r *repo) filterBranches(keep func(core.Branch) bool) []core.Branch {
	var out []core.Branch
	for _, b := range r.d.branches {
		if keep(b) {
			out = append(out, cloneBranch(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *repo) CreateBranch(_ context.Context, b *core.Branch) error {
	for _, existing := range r.d.branches {
		if existing.Name == b.Name {
			return fmt.Errorf("branch %q: %w", b.Name, core.ErrConflict)
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.d.branches[b.ID] = cloneBranch(*b)
	return nil
}

func (r *repo) UpdateBranch(_ context.Context, b *core.Branch) error {
	if _, ok := r.d.branches[b.ID]; !ok {
		return fmt.Errorf("branch %s: %w", b.ID, core.ErrNotFound)
	}
	for id, existing := range r.d.branches {
		if id != b.ID && existing.Name == b.Name {
			return fmt.Errorf("branch %q: %w", b.Name, core.ErrConflict)
		}
	}
	b.UpdatedAt = r.now()
	r.d.branches[b.ID] = cloneBranch(*b)
	return nil
}

func (r *repo) FindContact(_ context.Context, branchID uuid.UUID, fullName string) (*core.ContactPerson, error) {
	for _, c := range r.d.contacts {
		if c.BranchID == branchID && c.FullName == fullName {
			out := c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("contact %q: %w", fullName, core.ErrNotFound)
}

func (r *repo) CreateContact(ctx context.Context, c *core.ContactPerson) error {
	if _, ok := r.d.branches[c.BranchID]; !ok {
		return fmt.Errorf("contact %q: branch %s: %w", c.FullName, c.BranchID, core.ErrNotFound)
	}
	if _, err := r.FindContact(ctx, c.BranchID, c.FullName); err == nil {
		return fmt.Errorf("contact %q: %w", c.FullName, core.ErrConflict)
	}
	r.d.nextContact++
	c.ID = r.d.nextContact
	r.d.contacts = append(r.d.contacts, *c)
	return nil
}

func (r *repo) FindATMByTID(_ context.Context, tid string) (*core.ATM, error) {
	for _, a := range r.d.atms {
		if a.TID == tid {
			out := cloneATM(a)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("atm %q: %w", tid, core.ErrNotFound)
}

func (r *repo) FindATMByIP(_ context.Context, ip string) (*core.ATM, error) {
	var found *core.ATM
	for _, a := range r.d.atms {
		if a.IPAddress.Valid && a.IPAddress.String == ip && (found == nil || a.ID < found.ID) {
			out := cloneATM(a)
			found = &out
		}
	}
	if found == nil {
		return nil, fmt.Errorf("atm with ip %q: %w", ip, core.ErrNotFound)
	}
	return found, nil
}

func (r *repo) ListATMs(_ context.Context) ([]core.ATM, error) {
	out := make([]core.ATM, 0, len(r.d.atms))
	for _, a := range r.d.atms {
		out = append(out, cloneATM(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) CreateATM(_ context.Context, a *core.ATM) error {
	for _, existing := range r.d.atms {
		if existing.TID == a.TID {
			return fmt.Errorf("atm %q: %w", a.TID, core.ErrConflict)
		}
	}
	r.d.nextATM++
	a.ID = r.d.nextATM
	now := r.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.d.atms[a.ID] = cloneATM(*a)
	return nil
}

func (r *repo) UpdateATM(_ context.Context, a *core.ATM) error {
	if _, ok := r.d.atms[a.ID]; !ok {
		return fmt.Errorf("atm %d: %w", a.ID, core.ErrNotFound)
	}
	for id, existing := range r.d.atms {
		if id != a.ID && existing.TID == a.TID {
			return fmt.Errorf("atm %q: %w", a.TID, core.ErrConflict)
		}
	}
	a.UpdatedAt = r.now()
	r.d.atms[a.ID] = cloneATM(*a)
	return nil
}

func (r *repo) DeleteInventory(_ context.Context) error {
	r.d.branches = make(map[uuid.UUID]core.Branch)
	r.d.contacts = nil
	r.d.atms = make(map[int64]core.ATM)
	return nil
}

func (r *repo) Counts(_ context.Context) (core.Counts, error) {
	return core.Counts{
		Regions:   len(r.d.regions),
		Districts: len(r.d.districts),
		Branches:  len(r.d.branches),
		Contacts:  len(r.d.contacts),
		ATMs:      len(r.d.atms),
	}, nil
}
