package memory

import (
	"time"

	"ai-answer-engine-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// RunRepository keeps run state in memory. Runs are ephemeral; state is lost
// on process restart.
type RunRepository struct {
	cache *cache.Cache
}

func NewRunRepository() *RunRepository {
	// Runs expire an hour after their last update, purged every 10 minutes.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &RunRepository{
		cache: c,
	}
}

// Save stores a snapshot of the run. The caller keeps mutating its own copy
// as the stream progresses; readers must never share that pointer.
func (r *RunRepository) Save(run *store.RunState) {
	snapshot := *run
	r.cache.Set(run.ID, &snapshot, cache.DefaultExpiration)
}

// Get returns a copy of the stored run, safe to serialize while the run is
// still being updated.
func (r *RunRepository) Get(runID string) (*store.RunState, bool) {
	if x, found := r.cache.Get(runID); found {
		snapshot := *x.(*store.RunState)
		return &snapshot, true
	}
	return nil, false
}

func (r *RunRepository) Delete(runID string) {
	r.cache.Delete(runID)
}

// ListBySession returns copies of every live run belonging to a session.
func (r *RunRepository) ListBySession(sessionID string) []*store.RunState {
	var runs []*store.RunState
	for _, item := range r.cache.Items() {
		run, ok := item.Object.(*store.RunState)
		if !ok {
			continue
		}
		if run.SessionID == sessionID {
			snapshot := *run
			runs = append(runs, &snapshot)
		}
	}
	return runs
}
