package memory

import (
	"testing"
	"time"

	"ai-answer-engine-be/pkg/store"
)

func newRun(id, sessionID string) *store.RunState {
	return &store.RunState{
		ID:        id,
		SessionID: sessionID,
		Query:     "capital of france",
		Mode:      "quick",
		Status:    store.RunStatusRunning,
		StartedAt: time.Now(),
	}
}

func TestSaveStoresSnapshot(t *testing.T) {
	repo := NewRunRepository()
	run := newRun("run-1", "session-1")
	repo.Save(run)

	// The writer keeps mutating its own copy while readers serialize theirs.
	run.Status = store.RunStatusCompleted
	run.Answer = "Paris"

	got, ok := repo.Get("run-1")
	if !ok {
		t.Fatal("Get() should find the saved run")
	}
	if got.Status != store.RunStatusRunning {
		t.Errorf("Status = %q, want the state at save time", got.Status)
	}
	if got.Answer != "" {
		t.Errorf("Answer = %q, want empty", got.Answer)
	}
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	repo := NewRunRepository()
	repo.Save(newRun("run-1", "session-1"))

	a, _ := repo.Get("run-1")
	b, _ := repo.Get("run-1")
	if a == b {
		t.Fatal("Get() must hand out distinct copies")
	}

	a.Answer = "mutated by one reader"
	again, _ := repo.Get("run-1")
	if again.Answer != "" {
		t.Errorf("stored run changed through a returned copy: %q", again.Answer)
	}
}

func TestListBySessionReturnsCopies(t *testing.T) {
	repo := NewRunRepository()
	repo.Save(newRun("run-1", "session-1"))
	repo.Save(newRun("run-2", "session-1"))
	repo.Save(newRun("run-3", "session-2"))

	runs := repo.ListBySession("session-1")
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}

	runs[0].Status = store.RunStatusFailed
	for _, r := range repo.ListBySession("session-1") {
		if r.Status != store.RunStatusRunning {
			t.Errorf("run %s status = %q, mutation leaked into the store", r.ID, r.Status)
		}
	}
}

func TestDelete(t *testing.T) {
	repo := NewRunRepository()
	repo.Save(newRun("run-1", "session-1"))
	repo.Delete("run-1")
	if _, ok := repo.Get("run-1"); ok {
		t.Error("deleted run should be gone")
	}
}
