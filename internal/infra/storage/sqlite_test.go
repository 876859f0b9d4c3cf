package storage

import (
	"path/filepath"
	"testing"

	"deepbook_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(&domain.Checkpoint{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	s := &Storage{db: db}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLatestCheckpoint(t *testing.T) {
	s := setupTestDB(t)

	// 1. Two phases of one run
	for _, phase := range []string{"deployed", "pools_created"} {
		if err := s.SaveCheckpoint(&domain.Checkpoint{RunID: "run-1", Phase: phase, State: `{"phase":"` + phase + `"}`}); err != nil {
			t.Fatalf("SaveCheckpoint failed: %v", err)
		}
	}

	// 2. Latest wins
	cp, err := s.LatestCheckpoint("run-1")
	if err != nil {
		t.Fatalf("LatestCheckpoint failed: %v", err)
	}
	if cp == nil {
		t.Fatal("checkpoint is nil")
	}
	if cp.Phase != "pools_created" {
		t.Errorf("expected pools_created, got %s", cp.Phase)
	}

	var state struct {
		Phase string `json:"phase"`
	}
	if err := cp.DecodeState(&state); err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if state.Phase != "pools_created" {
		t.Errorf("decoded phase = %s", state.Phase)
	}

	// 3. History keeps both
	history, err := s.History("run-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0].Phase != "deployed" {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestLatestCheckpoint_UnknownRun(t *testing.T) {
	s := setupTestDB(t)

	cp, err := s.LatestCheckpoint("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil, got %+v", cp)
	}
}

func TestSaveCheckpoint_Validation(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveCheckpoint(&domain.Checkpoint{Phase: "deployed"}); err == nil {
		t.Error("expected error for missing run id")
	}
	if err := s.SaveCheckpoint(&domain.Checkpoint{RunID: "r"}); err == nil {
		t.Error("expected error for missing phase")
	}
}

func TestListRunsAndDelete(t *testing.T) {
	s := setupTestDB(t)

	s.SaveCheckpoint(&domain.Checkpoint{RunID: "a", Phase: "deployed"})
	s.SaveCheckpoint(&domain.Checkpoint{RunID: "b", Phase: "deployed"})
	s.SaveCheckpoint(&domain.Checkpoint{RunID: "a", Phase: "pools_created"})

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "a" || runs[0].Phase != "pools_created" {
		t.Errorf("newest run first with its latest phase, got %+v", runs[0])
	}

	if err := s.DeleteRun("a"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if cp, _ := s.LatestCheckpoint("a"); cp != nil {
		t.Error("run a should be gone")
	}
}

func TestNewStorage_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "bootstrap.db")
	s, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer s.Close()

	if err := s.SaveCheckpoint(&domain.Checkpoint{RunID: "r", Phase: "deployed"}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
}
