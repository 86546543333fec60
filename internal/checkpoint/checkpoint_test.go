package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vinayprograms/agentmaker/internal/plan"
)

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run", DirName)
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("store is nil")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected directory to be created: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	cp := &Checkpoint{
		RunID:  "run-1",
		Step:   1,
		Status: "running",
		Action: "plan_update",
		Plan: []plan.Item{
			{ID: "a", Description: "write file", Status: plan.StatusPending},
		},
		Timestamp: time.Now(),
	}
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := store.Get(1)
	if got == nil {
		t.Fatal("checkpoint not found")
	}
	if got.Plan[0].Description != "write file" {
		t.Errorf("wrong plan: %+v", got.Plan)
	}

	// Verify file was written
	path := filepath.Join(dir, "step-0001.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("checkpoint file not written to disk")
	}
}

func TestSaveFillsTimestamp(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	cp := &Checkpoint{Step: 1}
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if cp.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestTrailAndLatest(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	if store.Latest() != nil {
		t.Error("expected no latest checkpoint in an empty store")
	}

	for _, step := range []int{3, 1, 2} {
		if err := store.Save(&Checkpoint{RunID: "r", Step: step, Status: "running"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	store.Save(&Checkpoint{RunID: "r", Step: 3, Status: "completed"})

	trail := store.Trail()
	if len(trail) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(trail))
	}
	for i, cp := range trail {
		if cp.Step != i+1 {
			t.Errorf("trail[%d] has step %d", i, cp.Step)
		}
	}
	if latest := store.Latest(); latest.Step != 3 || latest.Status != "completed" {
		t.Errorf("unexpected latest %+v", latest)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)
	store.Save(&Checkpoint{RunID: "r", Step: 1, Tool: "fs.write"})
	store.Save(&Checkpoint{RunID: "r", Step: 2, Tool: "shell", ToolError: "command_not_allowlisted"})

	// Noise that Load must skip
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)
	os.WriteFile(filepath.Join(dir, "step-0009.json"), []byte("{broken"), 0644)

	reloaded, _ := NewStore(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(reloaded.Trail()) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(reloaded.Trail()))
	}
	if cp := reloaded.Get(2); cp == nil || cp.ToolError != "command_not_allowlisted" {
		t.Errorf("unexpected checkpoint %+v", cp)
	}
}

func TestLoad_MissingDir(t *testing.T) {
	store := &Store{dir: filepath.Join(t.TempDir(), "gone"), checkpoints: map[int]*Checkpoint{}}
	if err := store.Load(); err != nil {
		t.Errorf("expected nil for missing directory, got %v", err)
	}
}

func TestDir(t *testing.T) {
	if got := Dir("runs", "abc"); got != filepath.Join("runs", "abc", DirName) {
		t.Errorf("unexpected dir %s", got)
	}
}
