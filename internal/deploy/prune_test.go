package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mkSnapshot(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("failed to age %s: %v", name, err)
	}
	return path
}

func TestPlanPrune(t *testing.T) {
	root := t.TempDir()
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	old := mkSnapshot(t, root, "monorepo-2026-07-10-120000", 45*24*time.Hour)
	fresh := mkSnapshot(t, root, "monorepo-2026-08-20-120000", 5*24*time.Hour)
	// Old, but not a snapshot of ours.
	other := mkSnapshot(t, root, "manual-copy", 90*24*time.Hour)
	wrongPrefix := mkSnapshot(t, root, "webapp-2026-05-01-000000", 90*24*time.Hour)
	// A stray file should never be considered.
	if err := os.WriteFile(filepath.Join(root, "monorepo-2026-01-01-000000"), nil, 0644); err != nil {
		t.Fatalf("failed to write stray file: %v", err)
	}

	candidates, err := PlanPrune(root, "monorepo", cutoff)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].Path != old {
		t.Errorf("expected %s, got %s", old, candidates[0].Path)
	}

	if err := DeleteCandidates(candidates); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired snapshot should be deleted")
	}
	for _, keep := range []string{fresh, other, wrongPrefix} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should survive pruning: %v", keep, err)
		}
	}
}

func TestPlanPrune_MissingRoot(t *testing.T) {
	candidates, err := PlanPrune(filepath.Join(t.TempDir(), "nope"), "monorepo", time.Now())
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if candidates != nil {
		t.Errorf("expected no candidates, got %+v", candidates)
	}
}

func TestSnapshotName(t *testing.T) {
	at := time.Date(2026, 8, 25, 4, 30, 15, 0, time.UTC)
	got := snapshotName("monorepo", at)
	want := "monorepo-2026-08-25-043015"
	if got != want {
		t.Errorf("snapshotName = %q, want %q", got, want)
	}
	if !matchesSnapshot("monorepo", got) {
		t.Errorf("generated name %q should match the pattern", got)
	}
}

func TestMatchesSnapshot(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"monorepo-2026-08-25-043015", true},
		{"monorepo-2026-08-25", false},
		{"monorepo-latest", false},
		{"monorepo", false},
		{"webapp-2026-08-25-043015", false},
		{"monorepo-2026-13-99-000000", false},
	}
	for _, tc := range cases {
		if got := matchesSnapshot("monorepo", tc.name); got != tc.want {
			t.Errorf("matchesSnapshot(monorepo, %q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
