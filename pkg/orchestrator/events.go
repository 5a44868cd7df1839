package orchestrator

import (
	"sync"
	"time"
)

// EventType tags the orchestrator event union.
type EventType string

const (
	EventProgress    EventType = "progress"
	EventAgents      EventType = "agents"
	EventAgentUpdate EventType = "agentUpdate"
	EventPlan        EventType = "plan"
	EventSources     EventType = "sources"
	EventResponse    EventType = "response"
	EventFollowUps   EventType = "followUps"
	EventError       EventType = "error"
	EventDone        EventType = "done"
	EventEnd         EventType = "end"
)

// Event is one record on a run's stream, serializable as {type, data, metadata?}.
type Event struct {
	Type     EventType      `json:"type"`
	Data     any            `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProgressData is the payload of progress events. Progress is monotonically
// non-decreasing over a run.
type ProgressData struct {
	Step     string `json:"step"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Progress int    `json:"progress"` // 0..100
}

// SourcesData carries ranked documents plus display metadata.
type SourcesData struct {
	Sources      any    `json:"sources"`
	TotalFound   int    `json:"totalFound"`
	MaxDisplayed int    `json:"maxDisplayed"`
	Mode         string `json:"mode"`
}

// DoneData is the advisory terminal summary; end remains the only reliable
// completion signal for consumers.
type DoneData struct {
	RunID       string        `json:"run_id"`
	Mode        string        `json:"mode"`
	SourceCount int           `json:"source_count"`
	Duration    time.Duration `json:"duration_ms"`
}

// emitter serializes all event writes for one run onto a single channel and
// guarantees the channel closes exactly once, after the end sentinel. Workers
// may emit concurrently; append order across workers follows completion order.
// Channel sends happen outside the mutex so a stalled consumer can never
// wedge end; in-flight emits are released when the stream stops.
type emitter struct {
	mu       sync.Mutex
	ch       chan Event
	stopped  chan struct{}
	sending  sync.WaitGroup
	closed   bool
	progress int
}

func newEmitter(buffer int) *emitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &emitter{
		ch:      make(chan Event, buffer),
		stopped: make(chan struct{}),
	}
}

func (e *emitter) events() <-chan Event { return e.ch }

// emit appends one event. Events after close are dropped; the terminal
// sentinel has already been delivered by then.
func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.sending.Add(1)
	e.mu.Unlock()
	defer e.sending.Done()

	select {
	case e.ch <- ev:
	case <-e.stopped:
	}
}

// emitProgress clamps progress to be non-decreasing before emitting.
func (e *emitter) emitProgress(step, message, details string, progress int) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if progress < e.progress {
		progress = e.progress
	}
	if progress > 100 {
		progress = 100
	}
	e.progress = progress
	e.sending.Add(1)
	e.mu.Unlock()
	defer e.sending.Done()

	select {
	case e.ch <- Event{
		Type: EventProgress,
		Data: ProgressData{Step: step, Message: message, Details: details, Progress: progress},
	}:
	case <-e.stopped:
	}
}

// end emits the terminal sentinel and closes the stream. Safe to call once.
func (e *emitter) end() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stopped)
	e.sending.Wait()
	e.ch <- Event{Type: EventEnd, Data: "done"}
	close(e.ch)
}
