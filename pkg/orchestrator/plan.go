package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// Mode selects the effort level of a run.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModePro   Mode = "pro"
	ModeUltra Mode = "ultra"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeQuick, ModePro, ModeUltra:
		return true
	}
	return false
}

// HistoryMessage is one prior conversation turn.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchRequest is the immutable input of one orchestration run.
type SearchRequest struct {
	// RunID identifies the run; generated when empty. Callers that track run
	// state supply their own so the ID is known before the stream drains.
	RunID         string           `json:"run_id,omitempty"`
	Query         string           `json:"query"`
	History       []HistoryMessage `json:"history,omitempty"`
	Mode          Mode             `json:"mode"`
	AttachmentIDs []string         `json:"attachment_ids,omitempty"`
	Instructions  string           `json:"instructions,omitempty"`
}

// StepKind is the tagged step classification, produced by the planner parser.
// Dispatch happens on this enum, never on step-name substrings at execution time.
type StepKind string

const (
	StepQueryAnalysis     StepKind = "query_analysis"
	StepWebSearch         StepKind = "web_search"
	StepDocumentRetrieval StepKind = "document_retrieval"
	StepReranking         StepKind = "reranking"
	StepGeneration        StepKind = "generation"
	StepGeneric           StepKind = "generic"
)

// Step statuses. Completed and failed are terminal; transitions never regress.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

func (s StepStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SearchStep is one unit of plan execution, owned by its plan and mutated only
// by the orchestrator goroutine executing it.
type SearchStep struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      StepKind   `json:"kind"`
	Status    StepStatus `json:"status"`
	Result    any        `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	EndedAt   time.Time  `json:"ended_at,omitempty"`
}

// transition enforces monotonic status changes; terminal states never regress.
func (s *SearchStep) transition(to StepStatus) bool {
	if s.Status.Terminal() {
		return false
	}
	switch to {
	case StatusRunning:
		if s.Status != StatusPending {
			return false
		}
		s.StartedAt = time.Now()
	case StatusCompleted, StatusFailed:
		s.EndedAt = time.Now()
	}
	s.Status = to
	return true
}

// SearchPlan is created once per run by the planning phase and mutated only
// through its steps.
type SearchPlan struct {
	Query             string        `json:"query"`
	Steps             []*SearchStep `json:"steps"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Priority          float64       `json:"priority"`
}

// snapshot deep-copies the plan for emission. The run keeps mutating step
// statuses while consumers serialize the event, so live pointers must never
// leave the run goroutine.
func (p *SearchPlan) snapshot() SearchPlan {
	cp := *p
	cp.Steps = make([]*SearchStep, len(p.Steps))
	for i, s := range p.Steps {
		step := *s
		cp.Steps[i] = &step
	}
	return cp
}

// Agent statuses share the step status set and the same monotonicity rule.

// SearchAgent is one unit of concurrent retrieval work in Pro/Ultra mode.
type SearchAgent struct {
	ID      string     `json:"id"`
	Query   string     `json:"query"`
	Status  StepStatus `json:"status"`
	Results int        `json:"results"`
}

func newAgent(query string) *SearchAgent {
	return &SearchAgent{
		ID:     uuid.New().String(),
		Query:  query,
		Status: StatusPending,
	}
}

// snapshotAgents copies agent values for emission; each worker keeps writing
// its own entry after the roster event goes out.
func snapshotAgents(agents []*SearchAgent) []SearchAgent {
	out := make([]SearchAgent, len(agents))
	for i, a := range agents {
		out[i] = *a
	}
	return out
}
