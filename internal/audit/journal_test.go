package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/netinventory/internal/core"
)

func TestKey(t *testing.T) {
	tests := map[string]string{
		"data/branches.csv":            "branches.csv",
		"/tmp/ATM List (2024).csv":     "ATM_List_2024_.csv",
		"contacts  + phones.xlsx":      "contacts_phones.xlsx",
		"site-info_v2.csv":             "site-info_v2.csv",
		"nested/dir/Ünïcode name.csv":  "_n_code_name.csv",
	}
	for in, want := range tests {
		assert.Equal(t, want, Key(in), "Key(%q)", in)
	}
}

func TestJournal_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, nil)
	fixed := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	id := "1001"
	j.Append(core.AuditRecord{
		SourceFile: "in/atms.csv",
		EntityKind: core.KindATM,
		EntityID:   &id,
		Row:        map[string]string{"TID": "1001", "Extra column": "kept"},
	})
	j.Append(core.AuditRecord{
		SourceFile: "in/atms.csv",
		Row:        map[string]string{"TID": ""},
	})

	recs, err := j.Read("in/atms.csv")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, fixed, recs[0].Timestamp)
	assert.Equal(t, core.KindATM, recs[0].EntityKind)
	require.NotNil(t, recs[0].EntityID)
	assert.Equal(t, "1001", *recs[0].EntityID)
	assert.Equal(t, "kept", recs[0].Row["Extra column"])

	assert.Nil(t, recs[1].EntityID)

	_, err = os.Stat(filepath.Join(dir, "atms.csv.jsonl"))
	assert.NoError(t, err)
}

func TestJournal_AppendIsAppendOnly(t *testing.T) {
	j := New(t.TempDir(), nil)
	rec := core.AuditRecord{SourceFile: "b.csv", EntityKind: core.KindBranch, Row: map[string]string{"Name": "Dilla"}}

	j.Append(rec)
	j.Append(rec)

	recs, err := j.Read("b.csv")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestJournal_ReadMissing(t *testing.T) {
	j := New(t.TempDir(), nil)
	recs, err := j.Read("never.csv")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestJournal_WriteFailureIsSwallowed(t *testing.T) {
	// A regular file where the directory should be makes every write fail.
	blocker := filepath.Join(t.TempDir(), "journal")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	j := New(blocker, nil)
	assert.NotPanics(t, func() {
		j.Append(core.AuditRecord{SourceFile: "a.csv"})
	})
}

func TestJournal_NilDiscards(t *testing.T) {
	var j *Journal
	assert.NotPanics(t, func() {
		j.Append(core.AuditRecord{SourceFile: "a.csv"})
	})
}
