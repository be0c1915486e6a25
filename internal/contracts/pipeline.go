package contracts

import "time"

// PipelineStage is one link of a RunPipeline request: the strategy to score
// with, the input universe cap (stage 1 only), and how many symbols survive
// into the next stage.
type PipelineStage struct {
	StrategyID      Strategy
	MarketCapLimit  int
	OutputCount     int
	Industry        *string
	Sector          *string
}

// StageResult reports what happened when one stage ran: how many symbols it
// received, how many it emitted, how long it took, and the per-stock scores
// that made the cut.
type StageResult struct {
	Stage       PipelineStage
	InputCount  int
	OutputCount int
	Duration    time.Duration
	Scores      []ScoreRow
	AvgScore    float64
	TopScore    float64
	BottomScore float64
	Halted      bool // true if this stage emitted zero rows
}

// PipelineResult is the full report for a RunPipeline call: one StageResult
// per stage actually executed, plus the final surviving symbols.
type PipelineResult struct {
	Stages       []StageResult
	FinalSymbols []string
	Halted       bool
}
