package importer

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// legacyTunnelHeaders are the tunnel columns of the OSPF export, folded.
var legacyTunnelHeaders = map[string]struct{}{
	"tunnel ip dr-er116": {},
	"tunnel ip dr-er126": {},
	"tunnel ip dc-er316": {},
	"tunnel ip dc-er416": {},
	"tunnel ip dr-er11":  {},
	"tunnel ip dr-er12":  {},
	"tunnel ip dc-er21":  {},
	"tunnel ip dc-er22":  {},
}

// isTunnelHeader reports whether a header holds a tunnel endpoint.
func isTunnelHeader(h string) bool {
	key := core.FoldHeader(h)
	if _, ok := legacyTunnelHeaders[key]; ok {
		return true
	}
	return strings.Contains(key, "tunnel")
}

// CollectTunnels returns up to core.TunnelSlots non-null tunnel values from
// row, scanning its columns left to right. It returns nil when the row has no
// tunnel values, which leaves stored tunnel slots untouched on merge.
func CollectTunnels(row core.Row) []pgtype.Text {
	var out []pgtype.Text
	for i, h := range row.Headers() {
		if !isTunnelHeader(h) {
			continue
		}
		if v := core.CleanValue(row.Values[i]); v.Valid {
			out = append(out, v)
			if len(out) == core.TunnelSlots {
				break
			}
		}
	}
	return out
}
