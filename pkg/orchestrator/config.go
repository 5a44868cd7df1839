package orchestrator

import (
	"time"

	"ai-answer-engine-be/pkg/rerank"
)

// ModeConfig collects the per-mode tuning knobs. The mode-specific ratios and
// thresholds are named, overridable configuration rather than literals buried
// in the strategies.
type ModeConfig struct {
	// Query fan-out bounds for the expansion phase.
	MinQueries int
	MaxQueries int

	// Rerank blend per mode. Quick trades recall for precision; Pro and
	// Ultra lower the threshold to favor recall.
	RerankThreshold float64
	MaxDocuments    int
	DiversityBoost  bool

	// Fusion bounds.
	MaxChunks       int
	MaxContextChars int

	// Source-mix split applied when file attachments are present. Remaining
	// capacity fills from whichever source type has supply.
	FileSourceRatio float64
	WebSourceRatio  float64

	// Ultra batch execution.
	Concurrency int
	BatchPause  time.Duration

	// Ultra cross-validation query bounds.
	CrossValidationMin int
	CrossValidationMax int

	// Ultra replanning telemetry timer. The timer reports agent completion
	// ratio and stops itself once the ratio reaches ReplanStopRatio; it never
	// alters the plan.
	ReplanInterval  time.Duration
	ReplanStopRatio float64
}

// RunConfig bounds a whole run regardless of mode.
type RunConfig struct {
	// RunDeadline is the overall wall-clock budget for one run; the context
	// handed to every suspension point carries it.
	RunDeadline time.Duration
	EventBuffer int
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		RunDeadline: 5 * time.Minute,
		EventBuffer: 64,
	}
}

func QuickConfig() ModeConfig {
	return ModeConfig{
		MinQueries:      1,
		MaxQueries:      1,
		RerankThreshold: 0.5,
		MaxDocuments:    8,
		MaxChunks:       4,
		MaxContextChars: 8000,
		WebSourceRatio:  1.0,
	}
}

func ProConfig() ModeConfig {
	return ModeConfig{
		MinQueries:      4,
		MaxQueries:      6,
		RerankThreshold: 0.25,
		MaxDocuments:    15,
		DiversityBoost:  true,
		MaxChunks:       10,
		MaxContextChars: 16000,
		FileSourceRatio: 0.4,
		WebSourceRatio:  0.6,
	}
}

func UltraConfig() ModeConfig {
	return ModeConfig{
		MinQueries:         8,
		MaxQueries:         12,
		RerankThreshold:    0.2,
		MaxDocuments:       25,
		DiversityBoost:     true,
		MaxChunks:          16,
		MaxContextChars:    24000,
		FileSourceRatio:    0.4,
		WebSourceRatio:     0.6,
		Concurrency:        12,
		BatchPause:         500 * time.Millisecond,
		CrossValidationMin: 3,
		CrossValidationMax: 5,
		ReplanInterval:     45 * time.Second,
		ReplanStopRatio:    0.8,
	}
}

func ConfigForMode(mode Mode) ModeConfig {
	switch mode {
	case ModePro:
		return ProConfig()
	case ModeUltra:
		return UltraConfig()
	default:
		return QuickConfig()
	}
}

func (m ModeConfig) rerankConfig() rerank.Config {
	cfg := rerank.DefaultConfig()
	cfg.Threshold = m.RerankThreshold
	cfg.MaxDocuments = m.MaxDocuments
	cfg.DiversityBoost = m.DiversityBoost
	return cfg
}
