package journal

import (
	"context"
	"path/filepath"
	"testing"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://" + filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestRebind(t *testing.T) {
	sq := &Store{dialect: sqlite}
	if got := sq.rebind("a = $1 AND b = $12 AND c = '$'"); got != "a = ?1 AND b = ?12 AND c = '$'" {
		t.Errorf("unexpected sqlite query %q", got)
	}
	pg := &Store{dialect: postgres}
	if got := pg.rebind("a = $1"); got != "a = $1" {
		t.Errorf("expected postgres query unchanged, got %q", got)
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open("mysql://localhost/x"); err == nil {
		t.Error("expected an error for an unsupported dsn")
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	entries := []Entry{
		{Team: "robo", Unum: 7, Cycle: 1, Stage: "commit", NodeIndex: 12, Nodes: 40, Remote: "chosen", Committed: "offensive_planner"},
		{Team: "robo", Unum: 7, Cycle: 2, Stage: "preprocess", NodeIndex: -1, Remote: "not_requested", Committed: "none"},
		{Team: "robo", Unum: 7, Cycle: 3, Stage: "commit", NodeIndex: -1, Remote: "failed", RemoteErr: "deadline", Committed: "offensive_planner", HoldAndScan: true},
		{Team: "robo", Unum: 9, Cycle: 3, Stage: "commit", NodeIndex: 5, Remote: "not_requested", Committed: "body_go_to_point"},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.Recent(ctx, "robo", 7, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Cycle != 3 || got[1].Cycle != 2 {
		t.Errorf("expected cycles 3,2 newest first, got %d,%d", got[0].Cycle, got[1].Cycle)
	}
	if !got[0].HoldAndScan || got[0].RemoteErr != "deadline" || got[0].Remote != "failed" {
		t.Errorf("unexpected entry %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	counts, err := s.StageCounts(ctx, "robo")
	if err != nil {
		t.Fatalf("stage counts: %v", err)
	}
	if counts["commit"] != 3 || counts["preprocess"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second migrate: %v", err)
	}
}
