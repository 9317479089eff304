package storage

import (
	"testing"
	"time"
)

func TestBuildArchivePath(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got, err := BuildArchivePath("a1b2c3", "sales_transactions", "parquet", at)
	if err != nil {
		t.Fatalf("BuildArchivePath() error = %v", err)
	}
	want := "a1b2c3/sales_transactions/20260314T092653Z.parquet"
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestBuildArchivePathRejectsBadComponents(t *testing.T) {
	at := time.Now()
	cases := []struct {
		session string
		table   string
	}{
		{"../escape", "sales"},
		{"", "sales"},
		{"good", "table/with/slash"},
		{"good", ""},
	}
	for _, tc := range cases {
		if _, err := BuildArchivePath(tc.session, tc.table, "csv", at); err == nil {
			t.Fatalf("expected error for session=%q table=%q", tc.session, tc.table)
		}
	}
}
