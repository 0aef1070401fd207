package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/netinventory/internal/audit"
	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/store/memory"
)

const (
	branchesWAN = `Branch Name,Connection Type,Service No.,Account No,WAN Address,Default Gateway,LAN Address
Hawassa Branch,Fiber,SN-1,ACC-1,10.0.0.1,10.0.0.254,192.168.1.0
Dilla Branch,vsat,SN-2,,10.0.1.1,,
`
	branchesOSPF = `branch_name,Host Name,WAN IP,tunnel ip dr-er116,tunnel ip dr-er126,Tunnel 3
Hawassa,hw-rtr-01,10.0.0.9,172.16.0.1,172.16.0.2,172.16.0.3
Shashemene Branch,sh-rtr-01,10.0.2.1,,,
`
	contactsCSV = `Branch Name,Contact Person,Role,Phone Number
Hawassa Branch,Abebe Kebede,Manager,0911000000
HAWASSA,Abebe Kebede,Manager,0911999999
Dilla,Sara Tadesse,IT,0912000000
Hawasa Main,Nobody,,
`
	atmsCSV = `TID,branch,atm_name,ip_address,atm_brand,deployment_status,location_type,serial_number
1001.0,Hawassa Branch,Piassa ATM,10.10.0.1,,deployed,University,SN-A
1.0011E+12,Dilla,,10.10.0.2,Diebold,,Hotel,
,Dilla,No TID,10.10.0.3,,,,
1001,Hawassa,,10.10.0.9,Wincor,,,
`
	supplementaryCSV = `Site Name,WAN IP,LAN Address (Router IP),LoopBack (Router-id),Account Number,ATM IP,SN,tunnel ip dc-er316
Dilla Branch,10.0.1.5,192.168.2.0,1.1.1.2,ACC-2,10.10.0.2,,172.16.1.1
Yirgalem,10.0.3.1,,,,10.10.0.50,SNX9,
Aleta Wondo,10.0.4.1,,,,10.10.0.60,,
Dilla,,,,,,,
`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImporter(t *testing.T, store core.Store, sources Sources) *Importer {
	t.Helper()
	im := New(store, sources)
	im.Logger = quietLogger()
	im.Journal = audit.New(filepath.Join(t.TempDir(), "journal"), im.Logger)
	return im
}

// stubSuffixes makes placeholder TIDs deterministic for the test.
func stubSuffixes(t *testing.T, suffixes ...string) {
	t.Helper()
	orig := placeholderSuffix
	i := 0
	placeholderSuffix = func() string {
		s := suffixes[min(i, len(suffixes)-1)]
		i++
		return s
	}
	t.Cleanup(func() { placeholderSuffix = orig })
}

func fullSources(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()
	return Sources{
		Branches: []string{
			writeFile(t, dir, "Hawassa District WAN Address.csv", branchesWAN),
			writeFile(t, dir, "WAN-IP and TUNNEL-on-OSPF.csv", branchesOSPF),
		},
		Contacts:      []string{writeFile(t, dir, "contact_person.csv", contactsCSV)},
		ATMs:          []string{writeFile(t, dir, "atm_all.csv", atmsCSV)},
		Supplementary: []string{writeFile(t, dir, "ATMs - Off - WAN - IP.csv", supplementaryCSV)},
	}
}

func mustPhase(t *testing.T, res *RunResult, p Phase) PhaseResult {
	t.Helper()
	pr, ok := res.Phase(p)
	require.True(t, ok, "no result for phase %s", p)
	return pr
}

func TestRun_FullImport(t *testing.T) {
	ctx := context.Background()
	stubSuffixes(t, "0000beef")
	store := memory.New()
	im := newTestImporter(t, store, fullSources(t))

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, core.Counts{Regions: 1, Districts: 3, Branches: 5, Contacts: 2, ATMs: 4}, res.Counts)

	branches := mustPhase(t, res, PhaseBranches)
	assert.Equal(t, 3, branches.Created)
	assert.Equal(t, 1, branches.Updated)
	assert.Zero(t, branches.Errors)

	contacts := mustPhase(t, res, PhaseContacts)
	assert.Equal(t, 2, contacts.Created)
	assert.Equal(t, 1, contacts.Unchanged)
	assert.Equal(t, 1, contacts.Skipped)
	require.Len(t, contacts.Warnings, 1)
	assert.Contains(t, contacts.Warnings[0], `contact_person.csv line 5: branch "Hawasa Main" not found`)

	atms := mustPhase(t, res, PhaseATMs)
	assert.Equal(t, 2, atms.Created)
	assert.Equal(t, 1, atms.Updated)
	assert.Equal(t, 1, atms.Skipped)

	supp := mustPhase(t, res, PhaseSupplementary)
	assert.Equal(t, 4, supp.Created)
	assert.Equal(t, 1, supp.Updated)
	assert.Equal(t, 2, supp.Unchanged)
	assert.Zero(t, supp.Errors)

	hawassa, err := store.FindBranchByName(ctx, "Hawassa")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", hawassa.WANAddress.String, "later file wins")
	assert.Equal(t, "hw-rtr-01", hawassa.HostName.String)
	assert.Equal(t, "ACC-1", hawassa.AccountNumber.String, "null in later file keeps value")
	assert.Equal(t, core.ConnFiber, hawassa.ConnectionType.String)
	require.NotNil(t, hawassa.DistrictID)

	dilla, err := store.FindBranchByName(ctx, "Dilla")
	require.NoError(t, err)
	assert.Equal(t, core.ConnVSAT, dilla.ConnectionType.String)
	assert.Equal(t, "10.0.1.5", dilla.WANAddress.String)
	assert.Equal(t, "1.1.1.2", dilla.DefaultGateway.String)
	assert.Equal(t, "172.16.1.1", dilla.Tunnels[0].String)

	_, err = store.FindBranchByName(ctx, "Yirgalem")
	assert.NoError(t, err, "supplementary creates missing branches")
}

func TestRun_ATMOverride(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	im := newTestImporter(t, store, fullSources(t))

	_, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	atm, err := store.FindATMByTID(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "10.10.0.9", atm.IPAddress.String)
	assert.Equal(t, "Wincor", atm.Brand)
	assert.Equal(t, "Piassa ATM", atm.Name)
	assert.Equal(t, "SN-A", atm.SerialNumber.String)
	assert.Equal(t, core.StatusDeployed, atm.DeploymentStatus)
	assert.Equal(t, "University", atm.LocationType.String)

	sci, err := store.FindATMByTID(ctx, "1001100000000")
	require.NoError(t, err)
	assert.Equal(t, "ATM 1001100000000", sci.Name)
	assert.Equal(t, "Diebold", sci.Brand)

	dilla, err := store.FindBranchByName(ctx, "Dilla")
	require.NoError(t, err)
	require.NotNil(t, sci.BranchID)
	assert.Equal(t, dilla.ID, *sci.BranchID)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	stubSuffixes(t, "0000beef", "0000cafe")
	store := memory.New()
	sources := fullSources(t)
	im := newTestImporter(t, store, sources)

	first, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	second, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Counts, second.Counts)
	assert.Zero(t, mustPhase(t, second, PhaseContacts).Created)
	assert.Zero(t, mustPhase(t, second, PhaseATMs).Created)
	assert.Zero(t, mustPhase(t, second, PhaseSupplementary).Created)

	recs, err := im.Journal.Read(sources.ATMs[0])
	require.NoError(t, err)
	assert.Len(t, recs, 8, "journal grows on every run")
}

func TestRun_JournalsEveryRow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sources := fullSources(t)
	im := newTestImporter(t, store, sources)

	_, err := im.Run(ctx, RunOptions{Phases: []Phase{PhaseBranches, PhaseATMs}})
	require.NoError(t, err)

	recs, err := im.Journal.Read(sources.ATMs[0])
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, core.KindATM, recs[0].EntityKind)
	require.NotNil(t, recs[0].EntityID)
	assert.Equal(t, "Piassa ATM", recs[0].Row["atm_name"])
	assert.Equal(t, "1001.0", recs[0].Row["TID"], "raw cell is kept")

	assert.Nil(t, recs[2].EntityID, "skipped row has no entity")
	assert.Equal(t, core.KindATM, recs[2].EntityKind)
	assert.Equal(t, "No TID", recs[2].Row["atm_name"])
}

func TestRun_JournalsTargetKindForUnresolvedRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sources := Sources{Contacts: []string{
		writeFile(t, dir, "contacts.csv", "Branch Name,Contact Person\nNowhere,Abebe Kebede\n"),
	}}
	im := newTestImporter(t, memory.New(), sources)

	res, err := im.Run(ctx, RunOptions{Phases: []Phase{PhaseContacts}})
	require.NoError(t, err)
	assert.Equal(t, 1, mustPhase(t, res, PhaseContacts).Skipped)

	recs, err := im.Journal.Read(sources.Contacts[0])
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.KindContact, recs[0].EntityKind)
	assert.Nil(t, recs[0].EntityID)
}

func TestRun_SuffixInsensitiveBranches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{Branches: []string{
		writeFile(t, dir, "a.csv", "Branch Name,WAN Address\nHawassa Branch,10.0.0.1\n"),
		writeFile(t, dir, "b.csv", "Branch Name,LAN Address\nHawassa,192.168.0.0\n"),
	}})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Branches)

	b, err := store.FindBranchByName(ctx, "Hawassa")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", b.WANAddress.String)
	assert.Equal(t, "192.168.0.0", b.LANAddress.String)
}

func TestRun_BranchMatchTier(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sources := Sources{Branches: []string{
		writeFile(t, dir, "a.csv", "Branch Name\nHawassa Tabor\n"),
		writeFile(t, dir, "b.csv", "Branch Name,WAN Address\nHawassa,10.0.0.9\n"),
	}}

	res, err := newTestImporter(t, memory.New(), sources).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts.Branches, "fold tier keeps a partial name apart")

	im := newTestImporter(t, memory.New(), sources)
	im.Policies.Branches.MaxTier = core.TierFirstToken
	res, err = im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Branches)
	assert.Equal(t, 1, mustPhase(t, res, PhaseBranches).Updated)
}

func TestRun_MergeOrderDependence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "Branch Name,WAN Address,Host Name\nDilla,10.0.0.1,dl-a\n")
	b := writeFile(t, dir, "b.csv", "Branch Name,WAN Address,Host Name\nDilla,10.0.0.2,\n")

	wan := func(paths ...string) (string, string) {
		store := memory.New()
		im := newTestImporter(t, store, Sources{Branches: paths})
		_, err := im.Run(ctx, RunOptions{})
		require.NoError(t, err)
		got, err := store.FindBranchByName(ctx, "Dilla")
		require.NoError(t, err)
		return got.WANAddress.String, got.HostName.String
	}

	w, h := wan(a, b)
	assert.Equal(t, "10.0.0.2", w)
	assert.Equal(t, "dl-a", h)

	w, h = wan(b, a)
	assert.Equal(t, "10.0.0.1", w)
	assert.Equal(t, "dl-a", h)
}

func TestRun_TunnelSlots(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{Branches: []string{
		writeFile(t, dir, "t.csv", "Branch Name,tunnel ip dr-er11,WAN IP,tunnel_ip_2,Tunnel IP DC-ER21\nDilla,1.1.1.1,10.0.0.1,2.2.2.2,3.3.3.3\n"),
	}})

	_, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	b, err := store.FindBranchByName(ctx, "Dilla")
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", b.Tunnels[0].String)
	assert.Equal(t, "2.2.2.2", b.Tunnels[1].String)
	assert.Equal(t, "3.3.3.3", b.Tunnels[2].String)
	for i := 3; i < core.TunnelSlots; i++ {
		assert.False(t, b.Tunnels[i].Valid, "slot %d should be null", i)
	}
}

func TestRun_ContactsFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		Branches: []string{writeFile(t, dir, "b.csv", "Branch Name\nHawassa\n")},
		Contacts: []string{writeFile(t, dir, "c.csv",
			"Branch Name,Contact Person,Phone Number\nHawassa,Abebe,0911\nHawassa Branch,Abebe,0922\n")},
	})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Contacts)

	b, err := store.FindBranchByName(ctx, "Hawassa")
	require.NoError(t, err)
	c, err := store.FindContact(ctx, b.ID, "Abebe")
	require.NoError(t, err)
	assert.Equal(t, "0911", c.Phone.String)
}

func TestRun_ContactMissCreatePolicy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		Contacts: []string{writeFile(t, dir, "c.csv", "Branch Name,Contact Person\nArba Minch Branch,Kebede\n")},
	})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Counts.Contacts)
	assert.Equal(t, 1, mustPhase(t, res, PhaseContacts).Skipped)

	im.Policies.Contacts.OnMiss = MissCreate
	res, err = im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Contacts)

	b, err := store.FindBranchByName(ctx, "Arba Minch")
	require.NoError(t, err)
	hawassa, err := store.FindDistrict(ctx, "Hawassa")
	require.NoError(t, err)
	require.NotNil(t, b.DistrictID)
	assert.Equal(t, hawassa.ID, *b.DistrictID)
}

func TestRun_SupplementaryLinksATMByIP(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		ATMs:          []string{writeFile(t, dir, "a.csv", "TID,ip_address\n2002,10.10.0.7\n")},
		Supplementary: []string{writeFile(t, dir, "s.csv", "Site Name,ATM IP\nShashemene,10.10.0.7\n")},
	})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.ATMs)

	atm, err := store.FindATMByTID(ctx, "2002")
	require.NoError(t, err)
	b, err := store.FindBranchByName(ctx, "Shashemene")
	require.NoError(t, err)
	require.NotNil(t, atm.BranchID)
	assert.Equal(t, b.ID, *atm.BranchID)
	assert.Equal(t, "ATM 2002", atm.Name)
}

func TestRun_SupplementaryTIDUpsert(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		Supplementary: []string{writeFile(t, dir, "s.csv", "Site Name,TID,ATM IP\nDilla,\"3,003\",10.9.9.9\n")},
	})

	_, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	atm, err := store.FindATMByTID(ctx, "3003")
	require.NoError(t, err)
	assert.Equal(t, "Dilla", atm.Name)
	assert.Equal(t, "10.9.9.9", atm.IPAddress.String)
}

func TestRun_PlaceholderTIDConflictRetry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stubSuffixes(t, "00000001")
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		Supplementary: []string{writeFile(t, dir, "s.csv",
			"Site Name,ATM IP,SN\nYirgalem,10.10.0.50,SNX9\nYirgalem,10.10.0.51,SNX9\n")},
	})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, mustPhase(t, res, PhaseSupplementary).Errors)

	first, err := store.FindATMByTID(ctx, "AUTO-SN-SNX9")
	require.NoError(t, err)
	assert.Equal(t, "10.10.0.50", first.IPAddress.String)
	assert.Equal(t, "Yirgalem", first.Name)

	second, err := store.FindATMByTID(ctx, "AUTO-00000001")
	require.NoError(t, err)
	assert.Equal(t, "10.10.0.51", second.IPAddress.String)
}

func TestRun_PlaceholderTIDAttemptsBounded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stubSuffixes(t, "deadbeef")
	store := memory.New()
	im := newTestImporter(t, store, Sources{
		Supplementary: []string{writeFile(t, dir, "s.csv",
			"Site Name,ATM IP\nYirgalem,10.10.0.50\nYirgalem,10.10.0.51\nDilla,\n")},
	})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	supp := mustPhase(t, res, PhaseSupplementary)
	assert.Equal(t, 1, supp.Errors)
	assert.False(t, supp.Failed(), "a failing row does not fail the phase")
	assert.Equal(t, 1, res.Counts.ATMs)
	assert.Equal(t, 2, res.Counts.Branches, "later rows still import")
}

func TestRun_Latin1Source(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	p := filepath.Join(dir, "latin1.csv")
	require.NoError(t, os.WriteFile(p, []byte("Branch Name,Host Name\nBah\xeer Dar,r\xe9seau\nGonder,gd\n"), 0o644))
	im := newTestImporter(t, store, Sources{Branches: []string{p}})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, mustPhase(t, res, PhaseBranches).Created)

	b, err := store.FindBranchByName(ctx, "Bahîr Dar")
	require.NoError(t, err)
	assert.Equal(t, "réseau", b.HostName.String)
}

func TestRun_UnreadableSourceIsCounted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{Branches: []string{
		filepath.Join(dir, "missing.csv"),
		writeFile(t, dir, "ok.csv", "Branch Name\nDilla\n"),
	}})

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)

	pr := mustPhase(t, res, PhaseBranches)
	assert.Equal(t, 1, pr.Errors)
	assert.Equal(t, 1, pr.Created)
	require.Len(t, pr.Warnings, 1)
	assert.Contains(t, pr.Warnings[0], "missing.csv")
}

func TestRun_SetupFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := memory.New()
	im := newTestImporter(t, store, Sources{Branches: []string{writeFile(t, dir, "b.csv", "Branch Name\nDilla\n")}})
	im.Taxonomy = Taxonomy{}

	res, err := im.Run(ctx, RunOptions{})
	require.Error(t, err)

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseSetup, pe.Phase)
	assert.NotEmpty(t, res.Error)
	assert.Len(t, res.Phases, 1)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Counts{}, counts)
}

func TestRun_Reset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateBranch(ctx, &core.Branch{Name: "Stale"}))
	require.NoError(t, store.CreateATM(ctx, &core.ATM{TID: "9"}))

	im := newTestImporter(t, store, Sources{})
	res, err := im.Run(ctx, RunOptions{Reset: true})
	require.NoError(t, err)

	_, ok := res.Phase(PhaseClean)
	assert.True(t, ok)
	assert.Equal(t, core.Counts{Regions: 1, Districts: 3}, res.Counts)
}

func TestRun_DryRunRollsBack(t *testing.T) {
	ctx := context.Background()
	stubSuffixes(t, "0000beef")
	store := memory.New()
	im := newTestImporter(t, store, fullSources(t))
	im.DryRun = true
	im.Journal = nil

	res, err := im.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Empty(t, res.Error)
	assert.Equal(t, 5, res.Counts.Branches)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Counts{}, counts)
}

func TestRun_PhaseSelection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	im := newTestImporter(t, store, fullSources(t))

	res, err := im.Run(ctx, RunOptions{Phases: []Phase{PhaseATMs}})
	require.NoError(t, err)

	var phases []Phase
	for _, pr := range res.Phases {
		phases = append(phases, pr.Phase)
	}
	assert.Equal(t, []Phase{PhaseSetup, PhaseATMs}, phases)
	assert.Zero(t, res.Counts.Branches)
	assert.Equal(t, 2, res.Counts.ATMs)
}

// faultStore fails every row savepoint taken while failPhase is running.
type faultStore struct {
	*memory.Store
	failPhase Phase
}

func (s *faultStore) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		return fn(ctx, &faultTx{Tx: tx, failPhase: "phase_" + string(s.failPhase)})
	})
}

type faultTx struct {
	core.Tx
	failPhase string
	current   string
}

func (t *faultTx) Savepoint(ctx context.Context, name string) error {
	if strings.HasPrefix(name, "phase_") {
		t.current = name
	}
	if name == "import_row" && t.current == t.failPhase {
		return errors.New("connection reset by peer")
	}
	return t.Tx.Savepoint(ctx, name)
}

func TestRun_PhaseFailureDoesNotStopRun(t *testing.T) {
	ctx := context.Background()
	store := &faultStore{Store: memory.New(), failPhase: PhaseContacts}
	im := newTestImporter(t, store, fullSources(t))

	res, err := im.Run(ctx, RunOptions{Phases: []Phase{PhaseBranches, PhaseContacts, PhaseATMs}})
	require.NoError(t, err)

	contacts := mustPhase(t, res, PhaseContacts)
	assert.True(t, contacts.Failed())
	assert.Contains(t, contacts.Err, "connection reset by peer")
	assert.Zero(t, contacts.Created)

	atms := mustPhase(t, res, PhaseATMs)
	assert.False(t, atms.Failed())
	assert.Equal(t, 2, atms.Created)

	assert.Zero(t, res.Counts.Contacts)
	assert.Equal(t, 3, res.Counts.Branches)
}

func TestRun_CancelledContextRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := memory.New()
	im := newTestImporter(t, store, fullSources(t))

	_, err := im.Run(ctx, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Regions)
}

func TestParsePhase(t *testing.T) {
	for _, p := range ImportPhases {
		got, err := ParsePhase(strings.ToUpper(string(p)))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePhase("setup")
	assert.Error(t, err)
}

func ExampleParsePhase() {
	p, err := ParsePhase(" ATMs ")
	fmt.Println(p, err)
	// Output: atms <nil>
}
