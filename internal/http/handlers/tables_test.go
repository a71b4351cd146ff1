package handlers

import (
	"strings"
	"testing"
)

// The open-order lookup must yield at most one row per table; a plain join
// would repeat a table once per pending order when several reference it.
func TestTableJoinYieldsOneRowPerTable(t *testing.T) {
	if !strings.Contains(tableJoin, "lateral") || !strings.Contains(tableJoin, "limit 1") {
		t.Fatalf("open-order join must cap at one row per table:\n%s", tableJoin)
	}
}

func TestSettableTableStatuses(t *testing.T) {
	for _, s := range []string{"available", "reserved", "maintenance"} {
		if _, ok := settableTableStatuses[s]; !ok {
			t.Fatalf("expected %q to be settable", s)
		}
	}
	// occupancy is derived from open orders, never set directly
	if _, ok := settableTableStatuses["occupied"]; ok {
		t.Fatalf("occupied must not be settable")
	}
}
