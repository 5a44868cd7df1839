package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-answer-engine-be/internal/pkg/logger"
	"ai-answer-engine-be/pkg/followup"
	"ai-answer-engine-be/pkg/fusion"
	"ai-answer-engine-be/pkg/llm"
	"ai-answer-engine-be/pkg/rerank"
	"ai-answer-engine-be/pkg/searxng"
	"ai-answer-engine-be/pkg/store"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// FileSearcher retrieves relevant segments from uploaded attachments. The
// vector repository in the service layer implements it.
type FileSearcher interface {
	SearchFiles(ctx context.Context, query string, attachmentIDs []string, limit int) ([]store.Document, error)
}

// PageFetcher fetches and extracts readable text from a URL, for queries that
// reference explicit links.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (store.Document, error)
}

// Orchestrator runs the plan/execute pipeline shared by all modes. It is safe
// for concurrent use; all per-run state lives in the runState created by Run.
type Orchestrator struct {
	llmProvider llm.LLMProvider
	search      *searxng.Client
	reranker    *rerank.Reranker
	followups   *followup.Generator
	files       FileSearcher
	fetcher     PageFetcher
	agentPool   *ants.Pool
	logger      logger.ILogger
	runConfig   RunConfig
}

func NewOrchestrator(
	llmProvider llm.LLMProvider,
	search *searxng.Client,
	reranker *rerank.Reranker,
	followups *followup.Generator,
	files FileSearcher,
	fetcher PageFetcher,
	agentPool *ants.Pool,
	log logger.ILogger,
	runConfig RunConfig,
) *Orchestrator {
	if runConfig.RunDeadline <= 0 {
		runConfig = DefaultRunConfig()
	}
	return &Orchestrator{
		llmProvider: llmProvider,
		search:      search,
		reranker:    reranker,
		followups:   followups,
		files:       files,
		fetcher:     fetcher,
		agentPool:   agentPool,
		logger:      log,
		runConfig:   runConfig,
	}
}

// runState is the mutable state of one run. Only the run goroutine and the
// agents it spawns touch it; agents write only their own entry and report
// documents back through channels.
type runState struct {
	runID     string
	req       SearchRequest
	cfg       ModeConfig
	em        *emitter
	plan      *SearchPlan
	startedAt time.Time

	queries        []string
	conversational bool
	directURLs     []string
	retrieved      bool

	agents    []*SearchAgent
	documents []store.Document
	ranked    []store.RerankedDocument
	context   string
	answer    string
}

// strategy is the per-mode specialization of query expansion and retrieval.
type strategy interface {
	expandQueries(ctx context.Context, run *runState) error
	retrieve(ctx context.Context, run *runState) error
}

func (o *Orchestrator) strategyFor(mode Mode) strategy {
	switch mode {
	case ModePro:
		return &proStrategy{o: o}
	case ModeUltra:
		return &ultraStrategy{o: o}
	default:
		return &quickStrategy{o: o}
	}
}

// Run starts one orchestration run and returns its event stream. The stream
// always terminates with an end event; on failure an error event precedes it.
// Cancelling ctx aborts the run at the next suspension point.
func (o *Orchestrator) Run(ctx context.Context, req SearchRequest) <-chan Event {
	em := newEmitter(o.runConfig.EventBuffer)

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	run := &runState{
		runID:     runID,
		req:       req,
		cfg:       ConfigForMode(req.Mode),
		em:        em,
		startedAt: time.Now(),
	}

	go func() {
		runCtx, cancel := context.WithTimeout(ctx, o.runConfig.RunDeadline)
		defer cancel()
		defer em.end()

		if err := o.execute(runCtx, run); err != nil {
			o.logger.Error("orchestrator", "run failed", map[string]interface{}{
				"run_id": run.runID,
				"mode":   string(req.Mode),
				"error":  err.Error(),
			})
			em.emit(Event{Type: EventError, Data: err.Error()})
			return
		}

		em.emit(Event{Type: EventDone, Data: DoneData{
			RunID:       run.runID,
			Mode:        string(req.Mode),
			SourceCount: len(run.ranked),
			Duration:    time.Since(run.startedAt) / time.Millisecond,
		}})
	}()

	return em.events()
}

// execute drives the two phases: plan, then step-by-step dispatch. Any error
// aborts the remaining steps.
func (o *Orchestrator) execute(ctx context.Context, run *runState) error {
	if strings.TrimSpace(run.req.Query) == "" {
		return fmt.Errorf("empty query")
	}
	if !run.req.Mode.Valid() {
		run.req.Mode = ModeQuick
		run.cfg = QuickConfig()
	}

	run.em.emitProgress("planning", "Building search plan", "", 5)

	p := &planner{llmProvider: o.llmProvider}
	plan, err := p.buildPlan(ctx, run.req.Query, run.req.Mode)
	if err != nil {
		return err
	}
	run.plan = plan
	run.em.emit(Event{Type: EventPlan, Data: plan.snapshot()})

	strat := o.strategyFor(run.req.Mode)

	// Progress advances evenly across the plan; sub-phases interpolate
	// within their step's band.
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			step.transition(StatusFailed)
			step.Error = err.Error()
			return fmt.Errorf("run cancelled: %w", err)
		}

		step.transition(StatusRunning)
		base := 10 + (85*i)/len(plan.Steps)
		run.em.emitProgress(step.Name, fmt.Sprintf("Running: %s", step.Name), "", base)

		if err := o.executeStep(ctx, run, strat, step); err != nil {
			step.transition(StatusFailed)
			step.Error = err.Error()
			run.em.emitProgress(step.Name, fmt.Sprintf("Failed: %s", step.Name), err.Error(), base)
			return fmt.Errorf("step %q failed: %w", step.Name, err)
		}
		step.transition(StatusCompleted)
	}

	run.em.emitProgress("complete", "Run complete", "", 100)
	return nil
}

func (o *Orchestrator) executeStep(ctx context.Context, run *runState, strat strategy, step *SearchStep) error {
	switch step.Kind {
	case StepQueryAnalysis:
		return strat.expandQueries(ctx, run)

	case StepWebSearch, StepDocumentRetrieval:
		// Planners often emit both a search and a retrieval step; the first
		// one to run performs the fan-out, the second is a no-op.
		if run.retrieved {
			step.Result = fmt.Sprintf("%d documents already retrieved", len(run.documents))
			return nil
		}
		if err := strat.retrieve(ctx, run); err != nil {
			return err
		}
		run.retrieved = true
		step.Result = fmt.Sprintf("%d documents", len(run.documents))
		return nil

	case StepReranking:
		return o.rerankAndFuse(ctx, run, step)

	case StepGeneration:
		return o.generate(ctx, run, step)

	default:
		// Unrecognized plan steps are narrated, not executed.
		step.Result = fmt.Sprintf("skipped: no handler for %q", step.Name)
		return nil
	}
}

// rerankAndFuse scores the working document set, publishes the sources event
// and builds the unified context for synthesis.
func (o *Orchestrator) rerankAndFuse(ctx context.Context, run *runState, step *SearchStep) error {
	if run.conversational || len(run.documents) == 0 {
		run.ranked = []store.RerankedDocument{}
		o.emitSources(run)
		return nil
	}

	ranked, err := o.reranker.Rerank(ctx, run.req.Query, run.documents, run.cfg.rerankConfig())
	if err != nil {
		return fmt.Errorf("rerank: %w", err)
	}
	run.ranked = applySourceMix(ranked, run.cfg)
	step.Result = fmt.Sprintf("%d of %d documents kept", len(run.ranked), len(run.documents))

	o.emitSources(run)

	fuser := fusion.NewFuser(o.llmProvider, fusion.Config{
		MaxChunks:       run.cfg.MaxChunks,
		MaxContextChars: run.cfg.MaxContextChars,
		GroupNearDupes:  true,
	})
	chunks := fuser.CreateChunks(run.req.Query, run.ranked)
	run.context = fuser.MergeIntoUnifiedContext(ctx, run.req.Query, chunks)
	return nil
}

func (o *Orchestrator) emitSources(run *runState) {
	run.em.emit(Event{
		Type: EventSources,
		Data: SourcesData{
			Sources:      run.ranked,
			TotalFound:   len(run.documents),
			MaxDisplayed: run.cfg.MaxDocuments,
			Mode:         string(run.req.Mode),
		},
		Metadata: map[string]any{"mode": string(run.req.Mode)},
	})
}

// generate synthesizes the answer and emits response and follow-up events.
// A conversational run replies directly without context.
func (o *Orchestrator) generate(ctx context.Context, run *runState, step *SearchStep) error {
	var prompt string
	if run.conversational {
		prompt = conversationalPrompt(run.req.Query, run.req.History)
	} else {
		prompt = synthesisPrompt(run.req.Query, run.context, run.req.Instructions)
	}

	answer, err := o.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		return fmt.Errorf("answer generation: %w", err)
	}
	run.answer = answer
	step.Result = fmt.Sprintf("%d chars", len(answer))

	run.em.emit(Event{Type: EventResponse, Data: answer})

	if o.followups != nil {
		suggestions := o.followups.Generate(ctx, run.req.Query, answer)
		run.em.emit(Event{Type: EventFollowUps, Data: suggestions})
	}
	return nil
}

// applySourceMix enforces the configured file/web split when both source types
// are present, filling remaining capacity from whichever side has supply.
func applySourceMix(ranked []store.RerankedDocument, cfg ModeConfig) []store.RerankedDocument {
	if cfg.FileSourceRatio <= 0 || cfg.MaxDocuments <= 0 {
		return ranked
	}

	var files, web []store.RerankedDocument
	for _, doc := range ranked {
		if doc.Document.Metadata.Engine == store.SourceFile {
			files = append(files, doc)
		} else {
			web = append(web, doc)
		}
	}
	if len(files) == 0 || len(web) == 0 {
		return ranked
	}

	fileCap := int(float64(cfg.MaxDocuments) * cfg.FileSourceRatio)
	webCap := cfg.MaxDocuments - fileCap

	take := func(docs []store.RerankedDocument, n int) []store.RerankedDocument {
		if len(docs) < n {
			n = len(docs)
		}
		return docs[:n]
	}

	picked := append([]store.RerankedDocument{}, take(files, fileCap)...)
	picked = append(picked, take(web, webCap)...)

	// Fill leftover capacity from whichever side still has supply.
	if len(picked) < cfg.MaxDocuments {
		for _, doc := range append(files[min(fileCap, len(files)):], web[min(webCap, len(web)):]...) {
			if len(picked) >= cfg.MaxDocuments {
				break
			}
			picked = append(picked, doc)
		}
	}
	return picked
}

// resultsToDocuments converts search hits into the internal document shape.
func resultsToDocuments(results []searxng.Result) []store.Document {
	docs := make([]store.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, store.Document{
			PageContent: r.Content,
			Metadata: store.DocumentMetadata{
				Title:         r.Title,
				URL:           r.URL,
				ImageURL:      r.ImageURL,
				Engine:        r.Engine,
				PublishedDate: r.PublishedDate,
			},
		})
	}
	return docs
}
