package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/netinventory/internal/core"
)

func readRow(t *testing.T, csv string) core.Row {
	t.Helper()
	p := writeFile(t, t.TempDir(), "row.csv", csv)
	table, err := core.ReadTable(p, core.ReadOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, table.Rows)
	return table.Rows[0]
}

func TestIsTunnelHeader(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"tunnel ip dr-er116", true},
		{"Tunnel IP DC-ER416", true},
		{"tunnel_ip_dc-er22", true},
		{"Tunnel 3", true},
		{"GRE tunnel endpoint", true},
		{"WAN IP", false},
		{"LoopBack (Router-id)", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTunnelHeader(tt.header), "isTunnelHeader(%q)", tt.header)
	}
}

func TestCollectTunnels(t *testing.T) {
	t.Run("source order and nulls skipped", func(t *testing.T) {
		row := readRow(t, "tunnel b,Site,tunnel a,tunnel c\n2.2.2.2,Dilla,nan,3.3.3.3\n")
		got := CollectTunnels(row)
		require.Len(t, got, 2)
		assert.Equal(t, "2.2.2.2", got[0].String)
		assert.Equal(t, "3.3.3.3", got[1].String)
	})

	t.Run("no tunnel values", func(t *testing.T) {
		row := readRow(t, "Site,tunnel a\nDilla,\n")
		assert.Nil(t, CollectTunnels(row))
	})

	t.Run("capped at slot count", func(t *testing.T) {
		row := readRow(t, "t1 tunnel,t2 tunnel,t3 tunnel,t4 tunnel,t5 tunnel,t6 tunnel,t7 tunnel,t8 tunnel\n1,2,3,4,5,6,7,8\n")
		got := CollectTunnels(row)
		require.Len(t, got, core.TunnelSlots)
		assert.Equal(t, "7", got[core.TunnelSlots-1].String)
	})
}
